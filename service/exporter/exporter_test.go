package exporter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/prometheus/client_golang/prometheus"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ExporterTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ExporterTestSuite struct{}

func (s *ExporterTestSuite) TestMetricsEndpoint(c *gc.C) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.EdgeForwarded()
	m.EdgeForwarded()

	svc, err := NewService(Config{ListenAddr: ":0", Gatherer: reg})
	c.Assert(err, gc.IsNil)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	c.Assert(rec.Code, gc.Equals, http.StatusOK)
	c.Assert(strings.Contains(rec.Body.String(), "webrank_edges_forwarded_total 2"), gc.Equals, true)
}

func (s *ExporterTestSuite) TestRunStopsOnCancel(c *gc.C) {
	svc, err := NewService(Config{ListenAddr: "127.0.0.1:0", Gatherer: prometheus.NewRegistry()})
	c.Assert(err, gc.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	doneCh := make(chan error, 1)
	go func() { doneCh <- svc.Run(ctx) }()
	cancel()

	select {
	case err = <-doneCh:
		c.Assert(err, gc.IsNil)
	case <-time.After(10 * time.Second):
		c.Fatal("timeout waiting for the exporter to exit")
	}
}

func (s *ExporterTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewService(Config{})
	c.Assert(err, gc.ErrorMatches, "(?s).*listen address.*metrics gatherer.*")
}

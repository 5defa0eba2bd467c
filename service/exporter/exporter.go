package exporter

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the settings for configuring the metrics exporter.
type Config struct {
	// ListenAddr is the address serving /metrics.
	ListenAddr string

	// Gatherer provides the exposed metrics.
	Gatherer prometheus.Gatherer

	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.Gatherer == nil {
		err = multierror.Append(err, xerrors.Errorf("metrics gatherer has not been provided"))
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Service exposes the run metrics over HTTP.
type Service struct {
	cfg    Config
	router *http.ServeMux
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("metrics exporter: config validation failed: %w", err)
	}
	svc := &Service{cfg: cfg, router: http.NewServeMux()}
	svc.router.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	return svc, nil
}

func (svc *Service) Name() string { return "metrics-exporter" }

// Handler returns the HTTP handler of the exporter.
func (svc *Service) Handler() http.Handler { return svc.router }

// Run serves the metrics until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:              svc.cfg.ListenAddr,
		Handler:           svc.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.cfg.Logger.WithField("addr", svc.cfg.ListenAddr).Info("serving metrics")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		err = nil
	}
	return err
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Ahmed-Sermani/webrank/service"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(ServiceGroupTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type ServiceGroupTestSuite struct{}

type funcService struct {
	name string
	run  func(context.Context) error
}

func (s funcService) Name() string                  { return s.name }
func (s funcService) Run(ctx context.Context) error { return s.run(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func failWith(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func completeAfter(d time.Duration) func(context.Context) error {
	return func(context.Context) error {
		time.Sleep(d)
		return nil
	}
}

func (s *ServiceGroupTestSuite) TestCompletionStopsOthers(c *gc.C) {
	g := service.ServiceGroup{
		funcService{name: "job", run: completeAfter(10 * time.Millisecond)},
		funcService{name: "metrics", run: blockUntilDone},
	}
	c.Assert(g.Run(context.TODO()), gc.IsNil)
}

func (s *ServiceGroupTestSuite) TestErrorStopsOthers(c *gc.C) {
	boom := xerrors.New("boom")
	g := service.ServiceGroup{
		funcService{name: "job", run: failWith(boom)},
		funcService{name: "metrics", run: blockUntilDone},
	}
	err := g.Run(context.TODO())
	c.Assert(xerrors.Is(err, boom), gc.Equals, true)
	c.Assert(err, gc.ErrorMatches, "(?s).*job: boom.*")
}

func (s *ServiceGroupTestSuite) TestParentCancellation(c *gc.C) {
	ctx, cancel := context.WithTimeout(context.TODO(), 10*time.Millisecond)
	defer cancel()
	g := service.ServiceGroup{
		funcService{name: "a", run: blockUntilDone},
		funcService{name: "b", run: blockUntilDone},
	}
	c.Assert(g.Run(ctx), gc.IsNil)
}

package rank

import (
	"context"
	"io"
	"time"

	"github.com/Ahmed-Sermani/webrank/job"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/Ahmed-Sermani/webrank/service/rank Runner

// Runner is implemented by objects that execute a complete ranking run.
type Runner interface {
	Run(ctx context.Context) (*job.Result, error)
}

// Config encapsulates the settings for configuring the rank service.
type Config struct {
	// Runner executes the ranking runs.
	Runner Runner

	// UpdateInterval is the time between the end of a run and the start
	// of the next one. Zero runs once and returns.
	UpdateInterval time.Duration

	// OnResult is invoked with the result of every successful run.
	// Optional.
	OnResult func(*job.Result)

	// Clock drives the update interval. Defaults to the wall clock.
	Clock clock.Clock

	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Runner == nil {
		err = multierror.Append(err, xerrors.Errorf("runner has not been provided"))
	}
	if cfg.UpdateInterval < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for update interval"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Service runs the ranking job, once or periodically.
type Service struct {
	cfg Config
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("rank service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

func (svc *Service) Name() string { return "rank" }

// Run executes a ranking run right away and then, when an update interval
// is configured, once per interval until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	for {
		svc.cfg.Logger.Info("starting ranking run")
		res, err := svc.cfg.Runner.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if svc.cfg.OnResult != nil {
			svc.cfg.OnResult(res)
		}
		if svc.cfg.UpdateInterval == 0 {
			return nil
		}

		svc.cfg.Logger.WithField("next_run_in", svc.cfg.UpdateInterval).Info("ranking run completed")
		select {
		case <-ctx.Done():
			return nil
		case <-svc.cfg.Clock.After(svc.cfg.UpdateInterval):
		}
	}
}

package ranker

import (
	"io"

	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// DefaultResetProbability is the probability of the random surfer
	// jumping to a random page instead of following a link.
	DefaultResetProbability = 0.15

	// DefaultIterations is the number of passes over the graph.
	DefaultIterations = 4
)

// Config encapsulates the settings for configuring the ranker.
type Config struct {
	// Dir and Name locate the sharded graph.
	Dir  string
	Name string

	// ResetProbability is the random reset probability used by the page
	// rank update, in [0, 1). Nil selects DefaultResetProbability.
	ResetProbability *float64

	// Iterations is the fixed number of passes to run. Defaults to
	// DefaultIterations.
	Iterations int

	// Metrics receives the per-iteration deltas. Optional.
	Metrics *metrics.Metrics

	// Logger for progress output. Defaults to a discarding logger.
	Logger *logrus.Entry
}

func (c *Config) validate() error {
	var err error
	if c.Dir == "" {
		err = multierror.Append(err, xerrors.Errorf("graph directory has not been specified"))
	}
	if c.Name == "" {
		c.Name = shard.DefaultName
	}
	if c.ResetProbability == nil {
		p := DefaultResetProbability
		c.ResetProbability = &p
	} else if p := *c.ResetProbability; p < 0 || p >= 1 {
		err = multierror.Append(err, xerrors.Errorf("reset probability must be in the range [0, 1)"))
	}
	if c.Iterations == 0 {
		c.Iterations = DefaultIterations
	} else if c.Iterations < 0 {
		err = multierror.Append(err, xerrors.Errorf("iteration count must be positive"))
	}
	if c.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		c.Logger = logrus.NewEntry(l)
	}
	return err
}

package job

import (
	"context"
	"io"
	"path/filepath"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/idmap/store/bolt"
	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/ranker"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// DefaultTop is the number of vertices reported by default.
const DefaultTop = 20

// VertexSource is implemented by objects that can stream the vertex rows.
type VertexSource interface {
	Vertices(ctx context.Context) (graph.VertexIterator, error)
}

// EdgeSource is implemented by objects that can stream the edge records.
type EdgeSource interface {
	Edges(ctx context.Context) (graph.EdgeIterator, error)
}

// VertexSourceFunc adapts a function to the VertexSource interface.
type VertexSourceFunc func(ctx context.Context) (graph.VertexIterator, error)

func (f VertexSourceFunc) Vertices(ctx context.Context) (graph.VertexIterator, error) { return f(ctx) }

// EdgeSourceFunc adapts a function to the EdgeSource interface.
type EdgeSourceFunc func(ctx context.Context) (graph.EdgeIterator, error)

func (f EdgeSourceFunc) Edges(ctx context.Context) (graph.EdgeIterator, error) { return f(ctx) }

// MapFactory creates the identity map used during a run. dir is the work
// directory of the run.
type MapFactory func(dir string) (idmap.Map, error)

// BoltMapFactory returns a MapFactory creating temporary bolt maps.
func BoltMapFactory(opts bolt.Options) MapFactory {
	return func(dir string) (idmap.Map, error) {
		opts.Temporary = true
		return bolt.Open(filepath.Join(dir, "idmap.db"), opts)
	}
}

// Config encapsulates the settings of a ranking job.
type Config struct {
	// WorkDir holds the identity log, the identity map and the graph files.
	WorkDir string

	VertexSource VertexSource
	EdgeSource   EdgeSource

	// NewMap creates the identity map. Defaults to a temporary bolt map.
	NewMap MapFactory

	// Shards selects the shard count. The zero value means one shard.
	Shards shard.Spec

	// MemoryBudget drives automatic shard sizing. Optional.
	MemoryBudget int64

	// HashWorkers, PrehashedEdges and StrictEdges configure edge ingestion.
	HashWorkers    int
	PrehashedEdges bool
	StrictEdges    bool

	// ResetProbability is handed to the ranker; nil selects its default.
	ResetProbability *float64
	Iterations       int

	// Top is the number of vertices reported. Defaults to DefaultTop.
	Top int

	// Indexer receives the scores of every vertex once ranking completes.
	// Optional.
	Indexer indexer.Indexer

	Metrics *metrics.Metrics

	// Clock times the phases of a run. Defaults to the wall clock.
	Clock clock.Clock

	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.WorkDir == "" {
		err = multierror.Append(err, xerrors.Errorf("work directory has not been specified"))
	}
	if cfg.VertexSource == nil {
		err = multierror.Append(err, xerrors.Errorf("vertex source has not been provided"))
	}
	if cfg.EdgeSource == nil {
		err = multierror.Append(err, xerrors.Errorf("edge source has not been provided"))
	}
	if cfg.NewMap == nil {
		cfg.NewMap = BoltMapFactory(bolt.Options{})
	}
	if !cfg.Shards.Auto && cfg.Shards.Shards < 0 {
		err = multierror.Append(err, xerrors.Errorf("shard count must be positive"))
	} else if !cfg.Shards.Auto && cfg.Shards.Shards == 0 {
		cfg.Shards = shard.Fixed(1)
	}
	if p := cfg.ResetProbability; p != nil && (*p < 0 || *p >= 1) {
		err = multierror.Append(err, xerrors.Errorf("reset probability must be in the range [0, 1)"))
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = ranker.DefaultIterations
	}
	if cfg.Top < 0 {
		err = multierror.Append(err, xerrors.Errorf("top count must be positive"))
	} else if cfg.Top == 0 {
		cfg.Top = DefaultTop
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

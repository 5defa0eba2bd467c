package ingest

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// EdgeFeed pushes every validated edge into loader.
type EdgeFeed func(ctx context.Context, loader EdgeLoader) error

// Loader drives a GraphStore through a complete build.
type Loader struct {
	store   GraphStore
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewLoader returns a Loader for store. Both m and logger are optional.
func NewLoader(store GraphStore, m *metrics.Metrics, logger *logrus.Entry) *Loader {
	if logger == nil {
		logger = discardLogger()
	}
	return &Loader{store: store, metrics: m, logger: logger}
}

// Load opens a preprocessing session, runs feed against it, declares
// vertexCount vertices and shards the graph according to spec. It returns
// the number of shards created.
func (l *Loader) Load(ctx context.Context, feed EdgeFeed, vertexCount uint64, spec shard.Spec) (int, error) {
	if err := l.store.StartPreprocessing(); err != nil {
		return 0, xerrors.Errorf("load graph: %w", err)
	}
	if err := feed(ctx, l.store); err != nil {
		// Release the session; its files stay on disk for inspection.
		_ = l.store.EndPreprocessing()
		return 0, xerrors.Errorf("load graph: %w", err)
	}
	if err := l.store.EndPreprocessing(); err != nil {
		return 0, xerrors.Errorf("load graph: %w", err)
	}
	if err := l.store.SetNumVertices(vertexCount); err != nil {
		return 0, xerrors.Errorf("load graph: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := l.store.ExecuteSharding(spec)
	if err != nil {
		return 0, xerrors.Errorf("load graph: %w", err)
	}
	l.metrics.ShardsCreated(n)
	l.logger.WithFields(logrus.Fields{
		"requested": spec.String(),
		"shards":    n,
		"vertices":  vertexCount,
	}).Info("graph store loaded")
	return n, nil
}

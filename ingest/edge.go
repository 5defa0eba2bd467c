package ingest

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/pipeline"
	"github.com/Ahmed-Sermani/webrank/pipeline/runners"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// EdgeIngesterConfig encapsulates the settings for an EdgeIngester.
type EdgeIngesterConfig struct {
	// Map resolves identities to vertex indices. It must be sealed before
	// Ingest is called.
	Map idmap.Map

	// Prehashed makes the ingester parse "hi-lo" identities instead of
	// hashing URLs.
	Prehashed bool

	// Strict turns unparsable pre-hashed identities into fatal errors.
	Strict bool

	// HashWorkers is the number of goroutines hashing records. Forwarded
	// edges keep source order regardless. Defaults to 1.
	HashWorkers int

	Metrics *metrics.Metrics
	Logger  *logrus.Entry
}

func (cfg *EdgeIngesterConfig) validate() error {
	var err error
	if cfg.Map == nil {
		err = multierror.Append(err, xerrors.Errorf("identity map has not been provided"))
	}
	if cfg.HashWorkers < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for hash workers"))
	} else if cfg.HashWorkers == 0 {
		cfg.HashWorkers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return err
}

// Stats summarises an edge ingestion pass.
type Stats struct {
	// Read is the number of records the source yielded.
	Read uint64

	// Forwarded is the number of edges handed to the loader.
	Forwarded uint64

	// DroppedSource counts edges whose source is unknown.
	DroppedSource uint64

	// DroppedDestination counts edges whose source is known but whose
	// destination is not.
	DroppedDestination uint64

	// Malformed counts records skipped by the source or by the hashing
	// stage.
	Malformed uint64
}

// EdgeIngester resolves the endpoints of every edge record to vertex
// indices and feeds the resolvable ones to an EdgeLoader. The work runs as
// a pipeline with the following stages:
//
// - Compute the identity of both endpoints.
// - Look both identities up in the identity map; drop the edge on a miss.
// - Hand the index pair to the loader.
type EdgeIngester struct {
	cfg EdgeIngesterConfig
}

func NewEdgeIngester(cfg EdgeIngesterConfig) (*EdgeIngester, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("edge ingester config validation failed: %w", err)
	}
	return &EdgeIngester{cfg: cfg}, nil
}

// Ingest sends every record of edgeIter through the ingestion pipeline.
// Calls block until the iterator is exhausted, an error occurs or ctx is
// cancelled.
func (ei *EdgeIngester) Ingest(ctx context.Context, edgeIter graph.EdgeIterator, loader EdgeLoader) (Stats, error) {
	var stats Stats
	hasher := &edgeHasher{
		prehashed: ei.cfg.Prehashed,
		strict:    ei.cfg.Strict,
		malformed: &stats.Malformed,
		logger:    ei.cfg.Logger,
	}
	resolver := &edgeResolver{
		m:       ei.cfg.Map,
		stats:   &stats,
		metrics: ei.cfg.Metrics,
		logger:  ei.cfg.Logger,
	}

	var hashStage pipeline.StageRunner
	if ei.cfg.HashWorkers > 1 {
		hashStage = runners.OrderedWorkerPool(hasher, ei.cfg.HashWorkers)
	} else {
		hashStage = runners.FIFO(hasher)
	}
	p := pipeline.New(hashStage, runners.FIFO(resolver))

	source := &edgeSource{edgeIter: edgeIter, read: &stats.Read, metrics: ei.cfg.Metrics}
	sink := &loaderSink{loader: loader, forwarded: &stats.Forwarded, metrics: ei.cfg.Metrics}
	err := p.Process(ctx, source, sink)

	if mc, ok := edgeIter.(graph.MalformedCounter); ok {
		stats.Malformed += mc.Malformed()
	}
	ei.cfg.Metrics.EdgesMalformed(stats.Malformed)
	if err != nil {
		return stats, xerrors.Errorf("ingest edges: %w", err)
	}

	ei.cfg.Logger.WithFields(logrus.Fields{
		"read":                stats.Read,
		"forwarded":           stats.Forwarded,
		"dropped_source":      stats.DroppedSource,
		"dropped_destination": stats.DroppedDestination,
		"malformed":           stats.Malformed,
	}).Info("edge ingestion complete")
	return stats, nil
}

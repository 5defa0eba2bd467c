/*
   A complete ranking run: vertex ingestion, edge ingestion and sharding,
   rank propagation, reporting and score export.
*/
package job

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/Ahmed-Sermani/webrank/ingest"
	"github.com/Ahmed-Sermani/webrank/ranker"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/Ahmed-Sermani/webrank/vector"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	graphDirName    = "graph"
	identityLogName = "identities.vec"
)

// Phase is the wall time spent in one step of a run.
type Phase struct {
	Name string
	Took time.Duration
}

// Entry is one line of the top-N report.
type Entry struct {
	Rank     int
	Vertex   uint64
	Identity identity.Identity
	Scores   graph.VertexData
}

// Result summarises a run.
type Result struct {
	Vertices   uint64
	Collisions uint64
	Edges      ingest.Stats
	Shards     int
	Deltas     []float64
	Exported   uint64
	Top        []Entry
	Phases     []Phase
}

// Job ranks the graph described by its vertex and edge sources.
type Job struct {
	cfg Config
}

func New(cfg Config) (*Job, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("job config validation failed: %w", err)
	}
	return &Job{cfg: cfg}, nil
}

// run holds the state shared by the phases of a single Run call.
type run struct {
	*Job
	res    *Result
	ids    *vector.Vector[identity.Identity]
	m      idmap.Map
	logger *logrus.Entry
}

// Run executes every phase in order. Work files are left in the work
// directory on failure and recreated by the next run.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(j.graphDir(), 0750); err != nil {
		return nil, xerrors.Errorf("prepare work directory: %w", err)
	}
	r := &run{Job: j, res: new(Result), logger: j.cfg.Logger}

	var err error
	if r.ids, err = vector.Create[identity.Identity](filepath.Join(j.cfg.WorkDir, identityLogName)); err != nil {
		return nil, err
	}
	defer func() { _ = r.ids.Close() }()
	if r.m, err = j.cfg.NewMap(j.cfg.WorkDir); err != nil {
		return nil, xerrors.Errorf("open identity map: %w", err)
	}
	defer func() {
		if r.m != nil {
			_ = r.m.Close()
		}
	}()

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"ingest vertices", r.ingestVertices},
		{"load graph", r.loadGraph},
		{"rank", r.rank},
		{"export scores", r.export},
	}
	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		start := j.cfg.Clock.Now()
		if err := p.fn(ctx); err != nil {
			return r.res, xerrors.Errorf("%s: %w", p.name, err)
		}
		took := j.cfg.Clock.Now().Sub(start)
		r.res.Phases = append(r.res.Phases, Phase{Name: p.name, Took: took})
		r.logger.WithFields(logrus.Fields{
			"phase": p.name,
			"took":  took,
		}).Info("phase completed")
	}
	return r.res, nil
}

func (j *Job) graphDir() string {
	return filepath.Join(j.cfg.WorkDir, graphDirName)
}

func (r *run) ingestVertices(ctx context.Context) (err error) {
	vdata, err := vector.Create[graph.VertexData](shard.VertexDataPath(r.graphDir(), shard.DefaultName))
	if err != nil {
		return err
	}
	defer func() {
		if cErr := vdata.Close(); cErr != nil {
			err = multierror.Append(err, cErr)
		}
	}()

	vi, err := ingest.NewVertexIngester(ingest.VertexIngesterConfig{
		Map:        r.m,
		Identities: r.ids,
		Data:       vdata,
		Metrics:    r.cfg.Metrics,
		Logger:     r.logger.WithField("component", "vertex-ingester"),
	})
	if err != nil {
		return err
	}

	it, err := r.cfg.VertexSource.Vertices(ctx)
	if err != nil {
		return xerrors.Errorf("open vertex source: %w", err)
	}
	defer func() { _ = it.Close() }()
	if _, err = vi.Ingest(ctx, it); err != nil {
		return err
	}

	r.res.Vertices = vi.NumVertices()
	r.res.Collisions = vi.Collisions()
	r.logger.WithFields(logrus.Fields{
		"vertices":   r.res.Vertices,
		"collisions": r.res.Collisions,
	}).Info("vertex ingestion complete")
	return r.m.Seal()
}

func (r *run) loadGraph(ctx context.Context) error {
	sharder, err := shard.NewSharder[graph.VertexData, ranker.EdgeData](shard.Config{
		Dir:          r.graphDir(),
		MemoryBudget: r.cfg.MemoryBudget,
		Logger:       r.logger.WithField("component", "sharder"),
	})
	if err != nil {
		return err
	}
	ei, err := ingest.NewEdgeIngester(ingest.EdgeIngesterConfig{
		Map:         r.m,
		Prehashed:   r.cfg.PrehashedEdges,
		Strict:      r.cfg.StrictEdges,
		HashWorkers: r.cfg.HashWorkers,
		Metrics:     r.cfg.Metrics,
		Logger:      r.logger.WithField("component", "edge-ingester"),
	})
	if err != nil {
		return err
	}

	feed := func(ctx context.Context, loader ingest.EdgeLoader) error {
		it, err := r.cfg.EdgeSource.Edges(ctx)
		if err != nil {
			return xerrors.Errorf("open edge source: %w", err)
		}
		defer func() { _ = it.Close() }()
		r.res.Edges, err = ei.Ingest(ctx, it, loader)
		return err
	}
	loader := ingest.NewLoader(sharder, r.cfg.Metrics, r.logger.WithField("component", "loader"))
	if r.res.Shards, err = loader.Load(ctx, feed, r.res.Vertices, r.cfg.Shards); err != nil {
		return err
	}

	// Lookups are over; release the map before ranking.
	err = r.m.Close()
	r.m = nil
	return err
}

func (r *run) rank(ctx context.Context) (err error) {
	rk, err := ranker.NewRanker(ranker.Config{
		Dir:              r.graphDir(),
		ResetProbability: r.cfg.ResetProbability,
		Iterations:       r.cfg.Iterations,
		Metrics:          r.cfg.Metrics,
		Logger:           r.logger.WithField("component", "ranker"),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cErr := rk.Close(); cErr != nil {
			err = multierror.Append(err, cErr)
		}
	}()

	if err = rk.Run(ctx); err != nil {
		return err
	}
	r.res.Deltas = rk.Deltas()

	top, err := rk.Top(r.cfg.Top)
	if err != nil {
		return err
	}
	for i, s := range top {
		id, err := r.ids.Get(s.Index)
		if err != nil {
			return xerrors.Errorf("resolve vertex %d: %w", s.Index, err)
		}
		r.res.Top = append(r.res.Top, Entry{
			Rank:     i + 1,
			Vertex:   s.Index,
			Identity: id,
			Scores:   s.Value,
		})
	}
	return nil
}

// exportBatch is the number of identities read from the log at once.
const exportBatch = 4096

func (r *run) export(ctx context.Context) error {
	if r.cfg.Indexer == nil {
		return nil
	}

	var (
		ids   = make([]identity.Identity, exportBatch)
		start uint64
		n     int
	)
	err := shard.VisitVertices(r.graphDir(), shard.DefaultName, func(idx uint64, data graph.VertexData) error {
		if idx >= start+uint64(n) {
			if err := ctx.Err(); err != nil {
				return err
			}
			start, n = idx, exportBatch
			if rem := r.ids.Len() - idx; rem < exportBatch {
				n = int(rem)
			}
			if err := r.ids.ReadRange(start, ids[:n]); err != nil {
				return err
			}
		}

		doc := &indexer.Document{
			ID:        ids[idx-start].UUID(),
			Vertex:    idx,
			PageRank:  float64(data.PageRank),
			TrustRank: float64(data.TrustRank),
			PornRank:  float64(data.PornRank),
		}
		if err := r.cfg.Indexer.Index(ctx, doc); err != nil {
			return err
		}
		r.res.Exported++
		return nil
	})
	if err != nil {
		return err
	}
	return r.cfg.Indexer.Flush(ctx)
}

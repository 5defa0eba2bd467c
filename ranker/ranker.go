/*
   Rank propagation over the sharded web graph: page rank following the
   random surfer model, with trust rank and porn rank spreading from their
   seeds along the links.
*/
package ranker

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/engine"
	"github.com/Ahmed-Sermani/webrank/engine/aggregators"
	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/shard"
	"golang.org/x/xerrors"
)

// Score is the final rank record of a vertex.
type Score = shard.VertexValue[graph.VertexData]

// Ranker runs the rank propagation program on a sharded graph.
type Ranker struct {
	cfg    Config
	engine *engine.Engine[graph.VertexData, EdgeData]
	prog   *Program
}

// NewRanker opens the sharded graph described by cfg.
func NewRanker(cfg Config) (*Ranker, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("ranker config validation failed: %w", err)
	}

	e, err := engine.Open[graph.VertexData, EdgeData](engine.Config{
		Dir:    cfg.Dir,
		Name:   cfg.Name,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	e.RegisterAggregator(deltaAggr, new(aggregators.Float64Aggregator))
	e.RegisterAggregator(maxDeltaAggr, new(aggregators.MaxFloat64Aggregator))
	e.RegisterAggregator(updatedAggr, new(aggregators.IntAggregator))

	return &Ranker{
		cfg:    cfg,
		engine: e,
		prog: &Program{
			resetProb: float32(*cfg.ResetProbability),
			metrics:   cfg.Metrics,
			logger:    cfg.Logger,
		},
	}, nil
}

// Close releases the graph files.
func (r *Ranker) Close() error {
	return r.engine.Close()
}

// Run executes the configured number of iterations. The vertex values on
// disk hold the final ranks once Run returns without error.
func (r *Ranker) Run(ctx context.Context) error {
	if err := r.engine.Run(ctx, r.prog, r.cfg.Iterations); err != nil {
		return xerrors.Errorf("rank propagation: %w", err)
	}
	return nil
}

// Deltas returns the sum of absolute page rank changes of every completed
// iteration.
func (r *Ranker) Deltas() []float64 {
	return append([]float64(nil), r.prog.deltas...)
}

// Scores invokes the provided visitor function for each vertex in index
// order.
func (r *Ranker) Scores(visitFn func(index uint64, data graph.VertexData) error) error {
	return shard.VisitVertices(r.cfg.Dir, r.cfg.Name, visitFn)
}

// Top returns the n vertices with the highest page rank, highest first.
func (r *Ranker) Top(n int) ([]Score, error) {
	return shard.TopVertices(r.cfg.Dir, r.cfg.Name, n, func(a, b graph.VertexData) bool {
		return a.PageRank < b.PageRank
	})
}

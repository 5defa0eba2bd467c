package ranker

import (
	"math"

	"github.com/Ahmed-Sermani/webrank/engine"
	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/sirupsen/logrus"
)

const (
	// trustDamping scales the neighbor trust and porn contributions.
	trustDamping = 10

	deltaAggr    = "delta"
	maxDeltaAggr = "max_delta"
	updatedAggr  = "updated"
)

// EdgeData is the value carried by every edge: the signals its source
// propagates to its destination.
type EdgeData struct {
	PageRank  float32
	TrustRank float32
	PornRank  float32
}

// SeedShare returns the initial per-edge page rank share of a vertex.
func SeedShare(outDegree int) float32 {
	return 1 / float32(outDegree)
}

// Propagate combines the page rank flowing in through the in-edges. The
// result is split across the out-edges when there are any.
func Propagate(resetProb, inSum float32, outDegree int) float32 {
	pr := resetProb + (1-resetProb)*inSum
	if outDegree > 0 {
		pr /= float32(outDegree)
	}
	return pr
}

// Accumulate adds a damped share of the neighbor signal to the own value.
func Accumulate(own, inSum float32) float32 {
	return own + inSum/trustDamping
}

// Finalize turns a stored per-edge share back into the total rank of the
// vertex.
func Finalize(share float32, outDegree int) float32 {
	if outDegree > 0 {
		return share * float32(outDegree)
	}
	return share
}

type vertex = engine.Vertex[graph.VertexData, EdgeData]

// Program implements the rank propagation over the sharded graph.
type Program struct {
	resetProb float32
	deltas    []float64
	metrics   *metrics.Metrics
	logger    *logrus.Entry
}

func (p *Program) BeforeIteration(e *engine.Engine[graph.VertexData, EdgeData]) error {
	e.Aggregator(deltaAggr).Set(0.0)
	e.Aggregator(maxDeltaAggr).Set(0.0)
	e.Aggregator(updatedAggr).Set(0)
	return nil
}

func (p *Program) BeforeInterval(*engine.Engine[graph.VertexData, EdgeData], uint64, uint64) error {
	return nil
}

func (p *Program) Update(e *engine.Engine[graph.VertexData, EdgeData], v *vertex) error {
	var (
		data   = v.Value()
		outDeg = v.NumOutEdges()
	)

	if e.Iteration() == 0 {
		if outDeg == 0 {
			return nil
		}
		data.PageRank = SeedShare(outDeg)
	} else {
		var prSum, trustSum, pornSum float32
		for _, in := range v.InEdges() {
			val := in.Value()
			prSum += val.PageRank
			trustSum += val.TrustRank
			pornSum += val.PornRank
		}

		pr := Propagate(p.resetProb, prSum, outDeg)
		delta := math.Abs(float64(pr - data.PageRank))
		e.Aggregator(deltaAggr).Aggregate(delta)
		e.Aggregator(maxDeltaAggr).Aggregate(delta)
		data.PageRank = pr
		data.TrustRank = Accumulate(data.TrustRank, trustSum)
		data.PornRank = Accumulate(data.PornRank, pornSum)
	}
	e.Aggregator(updatedAggr).Aggregate(1)

	out := EdgeData{PageRank: data.PageRank, TrustRank: data.TrustRank, PornRank: data.PornRank}
	for _, edge := range v.OutEdges() {
		edge.SetValue(out)
	}

	if e.IsLastIteration() {
		data.PageRank = Finalize(data.PageRank, outDeg)
	}
	v.SetValue(data)
	return nil
}

func (p *Program) AfterIteration(e *engine.Engine[graph.VertexData, EdgeData]) error {
	delta := e.Aggregator(deltaAggr).Get().(float64)
	p.deltas = append(p.deltas, delta)
	p.metrics.IterationDone(delta)
	p.logger.WithFields(logrus.Fields{
		"iteration": e.Iteration(),
		"delta":     delta,
		"max_delta": e.Aggregator(maxDeltaAggr).Get().(float64),
		"updated":   e.Aggregator(updatedAggr).Get().(int),
	}).Info("iteration completed")
	return nil
}

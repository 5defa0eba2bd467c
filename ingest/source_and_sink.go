package ingest

import (
	"context"
	"sync/atomic"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/pipeline"
)

type edgeSource struct {
	edgeIter graph.EdgeIterator
	read     *uint64
	metrics  *metrics.Metrics
}

func (es *edgeSource) Error() error { return es.edgeIter.Error() }

func (es *edgeSource) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return es.edgeIter.Next()
}

func (es *edgeSource) Payload() pipeline.Payload {
	edge := es.edgeIter.Edge()
	atomic.AddUint64(es.read, 1)
	es.metrics.EdgeRead()

	payload := payloadPool.Get().(*edgePayload)
	payload.Line = edge.Line
	payload.SrcText = edge.Src
	payload.DstText = edge.Dst
	return payload
}

// loaderSink forwards resolved edges to the graph store.
type loaderSink struct {
	loader    EdgeLoader
	forwarded *uint64
	metrics   *metrics.Metrics
}

func (s *loaderSink) Consume(_ context.Context, p pipeline.Payload) error {
	payload := p.(*edgePayload)
	if err := s.loader.AddEdge(payload.SrcIndex, payload.DstIndex); err != nil {
		return err
	}
	atomic.AddUint64(s.forwarded, 1)
	s.metrics.EdgeForwarded()
	return nil
}

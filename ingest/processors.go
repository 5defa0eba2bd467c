package ingest

import (
	"context"
	"sync/atomic"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/pipeline"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

var (
	_ pipeline.Processor = (*edgeHasher)(nil)
	_ pipeline.Processor = (*edgeResolver)(nil)
)

// edgeHasher computes the identities of both endpoints.
type edgeHasher struct {
	prehashed bool
	strict    bool
	malformed *uint64
	logger    *logrus.Entry
}

func (h *edgeHasher) Process(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*edgePayload)
	if !h.prehashed {
		payload.Src = identity.HashString(payload.SrcText)
		payload.Dst = identity.HashString(payload.DstText)
		return payload, nil
	}

	var err error
	if payload.Src, err = identity.Parse(payload.SrcText); err == nil {
		payload.Dst, err = identity.Parse(payload.DstText)
	}
	if err != nil {
		if h.strict {
			return nil, xerrors.Errorf("line %d: %v: %w", payload.Line, err, graph.ErrMalformedEdge)
		}
		atomic.AddUint64(h.malformed, 1)
		h.logger.WithFields(logrus.Fields{
			"line":  payload.Line,
			"error": err,
		}).Warn("skipping edge with malformed identity")
		return nil, nil
	}
	return payload, nil
}

// edgeResolver maps both identities to vertex indices, dropping edges with
// an unknown endpoint. The source is resolved first; an edge is reported
// once, against the first side that failed.
type edgeResolver struct {
	m       idmap.Map
	stats   *Stats
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

func (r *edgeResolver) Process(_ context.Context, p pipeline.Payload) (pipeline.Payload, error) {
	payload := p.(*edgePayload)

	idx, found, err := r.m.Lookup(payload.Src)
	if err != nil {
		return nil, xerrors.Errorf("line %d: resolve source: %w", payload.Line, err)
	}
	if !found {
		atomic.AddUint64(&r.stats.DroppedSource, 1)
		r.drop(payload, "source", payload.SrcText)
		return nil, nil
	}
	payload.SrcIndex = idx

	if idx, found, err = r.m.Lookup(payload.Dst); err != nil {
		return nil, xerrors.Errorf("line %d: resolve destination: %w", payload.Line, err)
	}
	if !found {
		atomic.AddUint64(&r.stats.DroppedDestination, 1)
		r.drop(payload, "destination", payload.DstText)
		return nil, nil
	}
	payload.DstIndex = idx
	return payload, nil
}

func (r *edgeResolver) drop(payload *edgePayload, side, ref string) {
	r.metrics.EdgeDropped(side)
	r.logger.WithFields(logrus.Fields{
		"line": payload.Line,
		"side": side,
		"ref":  ref,
	}).Warn("dropping edge with unknown endpoint")
}

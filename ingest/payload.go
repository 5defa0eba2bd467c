package ingest

import (
	"sync"

	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/pipeline"
)

var (
	_ pipeline.Payload = (*edgePayload)(nil)

	// Edge dumps hold billions of records; payloads are recycled instead of
	// being left to the garbage collector.
	payloadPool = sync.Pool{
		New: func() any { return new(edgePayload) },
	}
)

type edgePayload struct {
	Line    uint64
	SrcText string
	DstText string

	Src identity.Identity
	Dst identity.Identity

	SrcIndex uint64
	DstIndex uint64
}

func (p *edgePayload) Clone() pipeline.Payload {
	newp := payloadPool.Get().(*edgePayload)
	*newp = *p
	return newp
}

// MarkAsProcessed resets the payload and returns it to the pool.
func (p *edgePayload) MarkAsProcessed() {
	*p = edgePayload{}
	payloadPool.Put(p)
}

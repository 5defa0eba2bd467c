/*
   Streams vertex and edge sources into the identity log, the identity map
   and the graph store.
*/
package ingest

import (
	"io"
	"sync/atomic"

	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/Ahmed-Sermani/webrank/ingest EdgeLoader,GraphStore

// EdgeLoader is implemented by objects that accept resolved edges as pairs
// of dense vertex indices.
type EdgeLoader interface {
	AddEdge(src, dst uint64) error
}

// GraphStore is implemented by objects that build the on-disk graph
// representation. Calls follow the order StartPreprocessing, AddEdge*,
// EndPreprocessing, SetNumVertices, ExecuteSharding.
type GraphStore interface {
	EdgeLoader

	StartPreprocessing() error
	EndPreprocessing() error

	// SetNumVertices declares the number of vertices. It must exceed the
	// highest vertex index passed to AddEdge.
	SetNumVertices(n uint64) error

	// ExecuteSharding partitions the graph and returns the number of
	// shards written.
	ExecuteSharding(spec shard.Spec) (int, error)
}

// Sequence hands out contiguous vertex indices starting at zero.
type Sequence struct {
	next uint64
}

// Next returns the next index.
func (s *Sequence) Next() uint64 {
	return atomic.AddUint64(&s.next, 1) - 1
}

// Len returns the number of indices handed out so far.
func (s *Sequence) Len() uint64 {
	return atomic.LoadUint64(&s.next)
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

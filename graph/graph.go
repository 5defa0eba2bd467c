package graph

import (
	"database/sql"

	"github.com/Ahmed-Sermani/webrank/identity"
	"golang.org/x/xerrors"
)

var (
	// ErrMalformedEdge is returned by edge sources running in strict mode
	// when a record cannot be split into a source and a destination.
	ErrMalformedEdge = xerrors.New("malformed edge record")

	// ErrMalformedVertex is returned when a vertex record cannot be parsed.
	ErrMalformedVertex = xerrors.New("malformed vertex record")
)

type Iterator interface {
	// Next advances the iterator. If no more items are available or an
	// error occurs, calls to Next() return false.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with an iterator.
	Close() error
}

// Vertex is a row of the vertex source.
type Vertex struct {
	// URL of the page. Empty when the source provides the identity words.
	URL string

	// ID is the identity computed upstream; only meaningful when HasID is
	// set.
	ID    identity.Identity
	HasID bool

	TrustRank sql.NullFloat64
	PornRank  sql.NullFloat64
}

// Identity returns the identity of the vertex, hashing its URL unless the
// source already provided one.
func (v *Vertex) Identity() identity.Identity {
	if v.HasID {
		return v.ID
	}
	return identity.HashString(v.URL)
}

// Data returns the initial per-vertex record. Missing scores default to
// zero and the page rank always starts at zero.
func (v *Vertex) Data() VertexData {
	return VertexData{
		TrustRank: float32(v.TrustRank.Float64),
		PornRank:  float32(v.PornRank.Float64),
	}
}

type VertexIterator interface {
	Iterator

	// Vertex returns the currently fetched vertex.
	Vertex() *Vertex
}

// Edge is a record of the edge source before resolution. Src and Dst hold
// either URLs or textual identities, depending on the source.
type Edge struct {
	Src string
	Dst string

	// Line is the 1-based position of the record in its source, used in
	// diagnostics.
	Line uint64
}

type EdgeIterator interface {
	Iterator

	// Edge returns the currently fetched edge.
	Edge() *Edge
}

// MalformedCounter is implemented by edge iterators that skip malformed
// records instead of failing.
type MalformedCounter interface {
	Malformed() uint64
}

// VertexData is the per-vertex record stored by the graph store and
// updated by the rank propagation program.
type VertexData struct {
	PageRank  float32
	TrustRank float32
	PornRank  float32
}

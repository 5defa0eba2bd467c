/*
   Score index: the per-vertex scores of a ranking run, keyed by the UUID
   form of the vertex identity.
*/
package indexer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

var (
	// ErrNotFound is returned when looking up a missing document.
	ErrNotFound = xerrors.New("not found")

	// ErrMissingID is returned when indexing a document without an ID.
	ErrMissingID = xerrors.New("document does not provide a valid ID")
)

// Document holds the scores of one vertex.
type Document struct {
	// ID is the UUID form of the vertex identity.
	ID uuid.UUID

	// Vertex is the dense index the vertex had in the ranked graph.
	Vertex uint64

	PageRank  float64
	TrustRank float64
	PornRank  float64

	// IndexedAt is set by the indexer when the document is stored.
	IndexedAt time.Time
}

// Indexer is implemented by score index stores.
type Indexer interface {
	// Index inserts doc or replaces the document with the same ID. Stores
	// may buffer writes until Flush.
	Index(ctx context.Context, doc *Document) error

	// Flush makes every buffered write visible.
	Flush(ctx context.Context) error

	// FindByID looks up a document by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// Top returns up to n documents in descending page rank order.
	Top(ctx context.Context, n int) ([]*Document, error)

	Close() error
}

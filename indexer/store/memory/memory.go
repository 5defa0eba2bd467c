package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search"
	"github.com/blevesearch/bleve/search/query"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/xerrors"
)

var _ indexer.Indexer = (*InMemoryIndexer)(nil)

// InMemoryIndexer keeps the score documents in a memory-only bleve index.
type InMemoryIndexer struct {
	idx bleve.Index
	clk clock.Clock
}

// memDoc is the bleve view of a score document. Vertex is indexed as a
// number for sorting; VertexID and IndexedAt keep the exact values since
// bleve numbers are float64 and its datetimes drop sub-second precision.
type memDoc struct {
	Vertex    float64
	VertexID  string
	PageRank  float64
	TrustRank float64
	PornRank  float64
	IndexedAt string
}

// NewInMemoryIndexer returns an empty index whose documents are stamped
// with clk, or the wall clock if clk is nil.
func NewInMemoryIndexer(clk clock.Clock) (*InMemoryIndexer, error) {
	if clk == nil {
		clk = clock.WallClock
	}
	idx, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, err
	}
	return &InMemoryIndexer{idx: idx, clk: clk}, nil
}

func newIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()
	for _, name := range []string{"Vertex", "PageRank", "TrustRank", "PornRank"} {
		docMapping.AddFieldMappingsAt(name, bleve.NewNumericFieldMapping())
	}
	for _, name := range []string{"VertexID", "IndexedAt"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping
	return im
}

func (i *InMemoryIndexer) Index(_ context.Context, doc *indexer.Document) error {
	if doc.ID == uuid.Nil {
		return xerrors.Errorf("index: %w", indexer.ErrMissingID)
	}
	doc.IndexedAt = i.clk.Now()
	if err := i.idx.Index(doc.ID.String(), makeMemDoc(doc)); err != nil {
		return xerrors.Errorf("index: %w", err)
	}
	return nil
}

// Flush is a no-op; writes are visible immediately.
func (i *InMemoryIndexer) Flush(context.Context) error { return nil }

func (i *InMemoryIndexer) FindByID(ctx context.Context, id uuid.UUID) (*indexer.Document, error) {
	docs, err := i.search(ctx, bleve.NewDocIDQuery([]string{id.String()}), 1)
	if err != nil {
		return nil, xerrors.Errorf("find by id: %w", err)
	} else if len(docs) == 0 {
		return nil, xerrors.Errorf("find by id: %w", indexer.ErrNotFound)
	}
	return docs[0], nil
}

// Top returns up to n documents ordered by descending PageRank, ties broken
// by ascending vertex.
func (i *InMemoryIndexer) Top(ctx context.Context, n int) ([]*indexer.Document, error) {
	if n <= 0 {
		return nil, nil
	}
	docs, err := i.search(ctx, bleve.NewMatchAllQuery(), n)
	if err != nil {
		return nil, xerrors.Errorf("top: %w", err)
	}
	return docs, nil
}

func (i *InMemoryIndexer) Close() error {
	return i.idx.Close()
}

func (i *InMemoryIndexer) search(ctx context.Context, q query.Query, size int) ([]*indexer.Document, error) {
	req := bleve.NewSearchRequest(q)
	req.SortBy([]string{"-PageRank", "Vertex"})
	req.Size = size
	req.Fields = []string{"*"}
	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	docs := make([]*indexer.Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		doc, err := mapHit(hit)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func makeMemDoc(d *indexer.Document) memDoc {
	return memDoc{
		Vertex:    float64(d.Vertex),
		VertexID:  strconv.FormatUint(d.Vertex, 10),
		PageRank:  d.PageRank,
		TrustRank: d.TrustRank,
		PornRank:  d.PornRank,
		IndexedAt: d.IndexedAt.UTC().Format(time.RFC3339Nano),
	}
}

func mapHit(hit *search.DocumentMatch) (*indexer.Document, error) {
	id, err := uuid.Parse(hit.ID)
	if err != nil {
		return nil, xerrors.Errorf("document %q: %w", hit.ID, err)
	}
	doc := &indexer.Document{ID: id}
	doc.PageRank, _ = hit.Fields["PageRank"].(float64)
	doc.TrustRank, _ = hit.Fields["TrustRank"].(float64)
	doc.PornRank, _ = hit.Fields["PornRank"].(float64)

	vertexID, _ := hit.Fields["VertexID"].(string)
	if doc.Vertex, err = strconv.ParseUint(vertexID, 10, 64); err != nil {
		return nil, xerrors.Errorf("document %q: vertex: %w", hit.ID, err)
	}
	indexedAt, _ := hit.Fields["IndexedAt"].(string)
	if doc.IndexedAt, err = time.Parse(time.RFC3339Nano, indexedAt); err != nil {
		return nil, xerrors.Errorf("document %q: indexed at: %w", hit.ID, err)
	}
	return doc, nil
}

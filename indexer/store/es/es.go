package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"golang.org/x/xerrors"
)

// DefaultIndexName is the index the scores are written to.
const DefaultIndexName = "webrank-scores"

var _ indexer.Indexer = (*ESIndexer)(nil)

type esErrorRes struct {
	Err struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (e esErrorRes) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Type, e.Err.Reason)
}

type esDoc struct {
	ID        string    `json:"ID"`
	Vertex    uint64    `json:"Vertex"`
	PageRank  float64   `json:"PageRank"`
	TrustRank float64   `json:"TrustRank"`
	PornRank  float64   `json:"PornRank"`
	IndexedAt time.Time `json:"IndexedAt"`
}

type esTopQuery struct {
	Size int                            `json:"size"`
	Sort []map[string]map[string]string `json:"sort"`
}

type esSearchRes struct {
	Hits struct {
		HitList []struct {
			DocSource esDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ESIndexer stores score documents in Elasticsearch. Writes go through a
// bulk indexer and become searchable after Flush.
type ESIndexer struct {
	es        *elasticsearch.Client
	indexName string
	clk       clock.Clock

	mu   sync.Mutex
	bulk esutil.BulkIndexer

	// failures reported by the bulk indexer and its items since the last
	// Flush.
	failMu sync.Mutex
	failed error
}

// NewESIndexer connects to the given nodes and makes sure the score index
// exists. An empty indexName selects DefaultIndexName. Documents are
// stamped with clk, or the wall clock if clk is nil.
func NewESIndexer(nodes []string, indexName string, clk clock.Clock) (*ESIndexer, error) {
	i, err := newESIndexer(nodes, indexName, clk)
	if err != nil {
		return nil, err
	}
	if err = ensureIndex(i.es, i.indexName); err != nil {
		return nil, err
	}
	return i, nil
}

func newESIndexer(nodes []string, indexName string, clk clock.Clock) (*ESIndexer, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	if clk == nil {
		clk = clock.WallClock
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: nodes})
	if err != nil {
		return nil, err
	}
	return &ESIndexer{es: es, indexName: indexName, clk: clk}, nil
}

func ensureIndex(es *elasticsearch.Client, indexName string) error {
	const mapping = `
	{
		"mappings" : {
		  "properties": {
			"ID": {"type": "keyword"},
			"Vertex": {"type": "unsigned_long"},
			"PageRank": {"type": "double"},
			"TrustRank": {"type": "double"},
			"PornRank": {"type": "double"},
			"IndexedAt": {"type": "date"}
		  }
		}
	}`

	res, err := es.Indices.Create(indexName, es.Indices.Create.WithBody(strings.NewReader(mapping)))
	if err != nil {
		return xerrors.Errorf("create index error: %w", err)
	} else if res.IsError() {
		defer func() { _ = res.Body.Close() }()
		var esErr esErrorRes
		if err := json.NewDecoder(res.Body).Decode(&esErr); err != nil {
			return err
		}
		if esErr.Err.Type == "resource_already_exists_exception" {
			return nil
		}
		return xerrors.Errorf("create index: %w", esErr)
	}
	return res.Body.Close()
}

func (i *ESIndexer) Index(ctx context.Context, doc *indexer.Document) error {
	if doc.ID == uuid.Nil {
		return xerrors.Errorf("index: %w", indexer.ErrMissingID)
	}
	doc.IndexedAt = i.clk.Now()
	body, err := json.Marshal(makeESDoc(doc))
	if err != nil {
		return xerrors.Errorf("index: %w", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.bulk == nil {
		if i.bulk, err = i.newBulkIndexer(); err != nil {
			return xerrors.Errorf("index: %w", err)
		}
	}
	err = i.bulk.Add(ctx, esutil.BulkIndexerItem{
		Action:     "index",
		DocumentID: doc.ID.String(),
		Body:       bytes.NewReader(body),
		OnFailure:  i.onItemFailure,
	})
	if err != nil {
		return xerrors.Errorf("index: %w", err)
	}
	return nil
}

func (i *ESIndexer) newBulkIndexer() (esutil.BulkIndexer, error) {
	return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:  i.es,
		Index:   i.indexName,
		OnError: i.onError,
	})
}

// onItemFailure records a document the bulk API rejected. err is nil when
// the failure is reported in the response item.
func (i *ESIndexer) onItemFailure(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
	if err == nil {
		err = xerrors.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
	}
	i.recordFailure(xerrors.Errorf("document %s: %w", item.DocumentID, err))
}

// onError records bulk request failures that are not tied to one document.
func (i *ESIndexer) onError(_ context.Context, err error) {
	i.recordFailure(xerrors.Errorf("bulk indexer: %w", err))
}

func (i *ESIndexer) recordFailure(err error) {
	i.failMu.Lock()
	i.failed = multierror.Append(i.failed, err)
	i.failMu.Unlock()
}

func (i *ESIndexer) takeFailures() error {
	i.failMu.Lock()
	defer i.failMu.Unlock()
	failed := i.failed
	i.failed = nil
	return failed
}

// Flush waits for the pending bulk requests and refreshes the index.
func (i *ESIndexer) Flush(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.bulk != nil {
		err := i.bulk.Close(ctx)
		i.bulk = nil
		if err != nil {
			return xerrors.Errorf("flush: %w", err)
		}
	}
	if failed := i.takeFailures(); failed != nil {
		return xerrors.Errorf("flush: %w", failed)
	}

	res, err := i.es.Indices.Refresh(
		i.es.Indices.Refresh.WithContext(ctx),
		i.es.Indices.Refresh.WithIndex(i.indexName),
	)
	if err != nil {
		return xerrors.Errorf("flush: %w", err)
	}
	var ignored map[string]any
	if err = unmarshalResponse(res, &ignored); err != nil {
		return xerrors.Errorf("flush: %w", err)
	}
	return nil
}

func (i *ESIndexer) FindByID(ctx context.Context, id uuid.UUID) (*indexer.Document, error) {
	res, err := i.es.Get(i.indexName, id.String(), i.es.Get.WithContext(ctx))
	if err != nil {
		return nil, xerrors.Errorf("find by ID: %w", err)
	}
	if res.StatusCode == 404 {
		_ = res.Body.Close()
		return nil, xerrors.Errorf("find by ID: %w", indexer.ErrNotFound)
	}

	var esRes struct {
		DocSource esDoc `json:"_source"`
	}
	if err := unmarshalResponse(res, &esRes); err != nil {
		return nil, xerrors.Errorf("find by ID: %w", err)
	}
	return mapESDoc(esRes.DocSource)
}

func (i *ESIndexer) Top(ctx context.Context, n int) ([]*indexer.Document, error) {
	query := esTopQuery{
		Size: n,
		Sort: []map[string]map[string]string{
			{"PageRank": {"order": "desc"}},
			{"Vertex": {"order": "asc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, xerrors.Errorf("top: %w", err)
	}
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.indexName),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, xerrors.Errorf("top: %w", err)
	}

	var esRes esSearchRes
	if err = unmarshalResponse(res, &esRes); err != nil {
		return nil, xerrors.Errorf("top: %w", err)
	}
	docs := make([]*indexer.Document, 0, len(esRes.Hits.HitList))
	for _, hit := range esRes.Hits.HitList {
		doc, err := mapESDoc(hit.DocSource)
		if err != nil {
			return nil, xerrors.Errorf("top: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Close flushes any buffered documents.
func (i *ESIndexer) Close() error {
	return i.Flush(context.Background())
}

func makeESDoc(d *indexer.Document) esDoc {
	return esDoc{
		ID:        d.ID.String(),
		Vertex:    d.Vertex,
		PageRank:  d.PageRank,
		TrustRank: d.TrustRank,
		PornRank:  d.PornRank,
		IndexedAt: d.IndexedAt.UTC(),
	}
}

func unmarshalResponse(res *esapi.Response, to interface{}) error {
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var esErr esErrorRes
		if err := json.NewDecoder(res.Body).Decode(&esErr); err != nil {
			return err
		}
		return esErr
	}
	return json.NewDecoder(res.Body).Decode(to)
}

func mapESDoc(doc esDoc) (*indexer.Document, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, err
	}
	return &indexer.Document{
		ID:        id,
		Vertex:    doc.Vertex,
		PageRank:  doc.PageRank,
		TrustRank: doc.TrustRank,
		PornRank:  doc.PornRank,
		IndexedAt: doc.IndexedAt.UTC(),
	}, nil
}

package es

import (
	"context"
	"time"

	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(BulkIndexerSuite))

// BulkIndexerSuite runs without a cluster; nothing listens on the
// configured node.
type BulkIndexerSuite struct {
	clk *testclock.Clock
	idx *ESIndexer
}

func (s *BulkIndexerSuite) SetUpTest(c *gc.C) {
	s.clk = testclock.NewClock(time.Date(2022, 5, 1, 12, 0, 0, 0, time.UTC))
	idx, err := newESIndexer([]string{"http://127.0.0.1:9"}, "", s.clk)
	c.Assert(err, gc.IsNil)
	s.idx = idx
}

func (s *BulkIndexerSuite) TestDefaults(c *gc.C) {
	idx, err := newESIndexer([]string{"http://127.0.0.1:9"}, "", nil)
	c.Assert(err, gc.IsNil)
	c.Assert(idx.indexName, gc.Equals, DefaultIndexName)
	c.Assert(idx.clk, gc.NotNil)
}

func (s *BulkIndexerSuite) TestNewBulkIndexer(c *gc.C) {
	bulk, err := s.idx.newBulkIndexer()
	c.Assert(err, gc.IsNil)
	c.Assert(bulk.Close(context.TODO()), gc.IsNil)
}

func (s *BulkIndexerSuite) TestItemFailureSurfacesOnFlush(c *gc.C) {
	item := esutil.BulkIndexerItem{DocumentID: "doc-1"}
	var res esutil.BulkIndexerResponseItem
	res.Error.Type = "mapper_parsing_exception"
	res.Error.Reason = "failed to parse"
	s.idx.onItemFailure(context.TODO(), item, res, nil)

	err := s.idx.Flush(context.TODO())
	c.Assert(err, gc.ErrorMatches, `(?s).*document doc-1: mapper_parsing_exception: failed to parse.*`)

	// Failures are reported once.
	c.Assert(s.idx.takeFailures(), gc.IsNil)
}

func (s *BulkIndexerSuite) TestIndexerErrorSurfacesOnFlush(c *gc.C) {
	s.idx.onError(context.TODO(), xerrors.New("connection refused"))

	err := s.idx.Flush(context.TODO())
	c.Assert(err, gc.ErrorMatches, `(?s).*bulk indexer: connection refused.*`)
}

func (s *BulkIndexerSuite) TestUnreachableClusterFailsFlush(c *gc.C) {
	doc := &indexer.Document{ID: uuid.New(), Vertex: 1, PageRank: 0.5}
	c.Assert(s.idx.Index(context.TODO(), doc), gc.IsNil)
	c.Assert(doc.IndexedAt.Equal(s.clk.Now()), gc.Equals, true)

	err := s.idx.Flush(context.TODO())
	c.Assert(err, gc.ErrorMatches, `(?s).*bulk indexer.*`)
}

package indexertest

import (
	"context"

	"github.com/Ahmed-Sermani/webrank/indexer"
	"github.com/google/uuid"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of score index tests that can be
// executed against any type that implements indexer.Indexer.
type SuiteBase struct {
	idx indexer.Indexer
}

// SetIndexer configures the test-suite to run all tests against idx.
func (s *SuiteBase) SetIndexer(idx indexer.Indexer) {
	s.idx = idx
}

func (s *SuiteBase) TestIndexAndFind(c *gc.C) {
	ctx := context.TODO()
	doc := &indexer.Document{
		ID:        uuid.New(),
		Vertex:    7,
		PageRank:  0.5,
		TrustRank: 0.25,
		PornRank:  0.125,
	}
	c.Assert(s.idx.Index(ctx, doc), gc.IsNil)
	c.Assert(s.idx.Flush(ctx), gc.IsNil)

	got, err := s.idx.FindByID(ctx, doc.ID)
	c.Assert(err, gc.IsNil)
	c.Assert(got.ID, gc.Equals, doc.ID)
	c.Assert(got.Vertex, gc.Equals, uint64(7))
	c.Assert(got.PageRank, gc.Equals, 0.5)
	c.Assert(got.TrustRank, gc.Equals, 0.25)
	c.Assert(got.PornRank, gc.Equals, 0.125)
	c.Assert(got.IndexedAt.IsZero(), gc.Equals, false)
}

func (s *SuiteBase) TestIndexReplacesExisting(c *gc.C) {
	ctx := context.TODO()
	id := uuid.New()
	c.Assert(s.idx.Index(ctx, &indexer.Document{ID: id, PageRank: 1}), gc.IsNil)
	c.Assert(s.idx.Flush(ctx), gc.IsNil)
	c.Assert(s.idx.Index(ctx, &indexer.Document{ID: id, PageRank: 2}), gc.IsNil)
	c.Assert(s.idx.Flush(ctx), gc.IsNil)

	got, err := s.idx.FindByID(ctx, id)
	c.Assert(err, gc.IsNil)
	c.Assert(got.PageRank, gc.Equals, 2.0)
}

func (s *SuiteBase) TestIndexMissingID(c *gc.C) {
	err := s.idx.Index(context.TODO(), &indexer.Document{PageRank: 1})
	c.Assert(xerrors.Is(err, indexer.ErrMissingID), gc.Equals, true)
}

func (s *SuiteBase) TestFindMissing(c *gc.C) {
	_, err := s.idx.FindByID(context.TODO(), uuid.New())
	c.Assert(xerrors.Is(err, indexer.ErrNotFound), gc.Equals, true)
}

func (s *SuiteBase) TestTop(c *gc.C) {
	ctx := context.TODO()
	ranks := []float64{0.3, 1.2, 0.7, 2.5, 0.1}
	for i, pr := range ranks {
		doc := &indexer.Document{ID: uuid.New(), Vertex: uint64(i), PageRank: pr}
		c.Assert(s.idx.Index(ctx, doc), gc.IsNil)
	}
	c.Assert(s.idx.Flush(ctx), gc.IsNil)

	top, err := s.idx.Top(ctx, 3)
	c.Assert(err, gc.IsNil)
	c.Assert(top, gc.HasLen, 3)
	var got []uint64
	for _, d := range top {
		got = append(got, d.Vertex)
	}
	c.Assert(got, gc.DeepEquals, []uint64{3, 1, 2})
}

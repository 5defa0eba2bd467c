package ingest_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Ahmed-Sermani/webrank/graph"
	memgraph "github.com/Ahmed-Sermani/webrank/graph/store/memory"
	"github.com/Ahmed-Sermani/webrank/identity"
	memmap "github.com/Ahmed-Sermani/webrank/idmap/store/memory"
	"github.com/Ahmed-Sermani/webrank/ingest"
	"github.com/Ahmed-Sermani/webrank/ingest/mocks"
	"github.com/Ahmed-Sermani/webrank/metrics"
	"github.com/Ahmed-Sermani/webrank/shard"
	"github.com/Ahmed-Sermani/webrank/vector"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(IngestTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type IngestTestSuite struct {
	m     *memmap.InMemoryMap
	ids   *vector.Vector[identity.Identity]
	vdata *vector.Vector[graph.VertexData]
	met   *metrics.Metrics

	logger *logrus.Entry
	hook   *test.Hook
}

func (s *IngestTestSuite) SetUpTest(c *gc.C) {
	dir := c.MkDir()
	var err error
	s.m = memmap.NewInMemoryMap()
	s.ids, err = vector.Create[identity.Identity](filepath.Join(dir, "identities"))
	c.Assert(err, gc.IsNil)
	s.vdata, err = vector.Create[graph.VertexData](filepath.Join(dir, "vdata"))
	c.Assert(err, gc.IsNil)
	s.met = metrics.New(nil)

	l, hook := test.NewNullLogger()
	s.logger, s.hook = logrus.NewEntry(l), hook
}

func (s *IngestTestSuite) TearDownTest(c *gc.C) {
	c.Assert(s.ids.Close(), gc.IsNil)
	c.Assert(s.vdata.Close(), gc.IsNil)
	c.Assert(s.m.Close(), gc.IsNil)
}

func (s *IngestTestSuite) ingestVertices(c *gc.C, g *memgraph.InMemoryGraph) *ingest.VertexIngester {
	vi, err := ingest.NewVertexIngester(ingest.VertexIngesterConfig{
		Map:        s.m,
		Identities: s.ids,
		Data:       s.vdata,
		Metrics:    s.met,
		Logger:     s.logger,
	})
	c.Assert(err, gc.IsNil)

	it, err := g.Vertices()
	c.Assert(err, gc.IsNil)
	_, err = vi.Ingest(context.TODO(), it)
	c.Assert(err, gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(s.m.Seal(), gc.IsNil)
	return vi
}

func (s *IngestTestSuite) edgeIngester(c *gc.C, cfg ingest.EdgeIngesterConfig) *ingest.EdgeIngester {
	cfg.Map = s.m
	cfg.Metrics = s.met
	cfg.Logger = s.logger
	ei, err := ingest.NewEdgeIngester(cfg)
	c.Assert(err, gc.IsNil)
	return ei
}

func (s *IngestTestSuite) droppedSides() []string {
	var sides []string
	for _, e := range s.hook.AllEntries() {
		if side, ok := e.Data["side"]; ok {
			sides = append(sides, side.(string))
		}
	}
	return sides
}

func sqlFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func (s *IngestTestSuite) TestVertexIndicesAreContiguous(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	for _, u := range urls {
		g.AddURL(u)
	}
	g.AddVertex(&graph.Vertex{
		URL:       "https://d.example",
		TrustRank: sqlFloat(0.5),
	})

	vi := s.ingestVertices(c, g)
	c.Assert(vi.NumVertices(), gc.Equals, uint64(4))
	c.Assert(vi.Collisions(), gc.Equals, uint64(0))
	c.Assert(s.ids.Len(), gc.Equals, uint64(4))
	c.Assert(s.vdata.Len(), gc.Equals, uint64(4))

	// The identity log maps every index back to the identity it came from.
	for i, u := range append(urls, "https://d.example") {
		id, err := s.ids.Get(uint64(i))
		c.Assert(err, gc.IsNil)
		c.Assert(id, gc.Equals, identity.HashString(u))

		idx, found, err := s.m.Lookup(id)
		c.Assert(err, gc.IsNil)
		c.Assert(found, gc.Equals, true)
		c.Assert(idx, gc.Equals, uint64(i))
	}

	data, err := s.vdata.Get(3)
	c.Assert(err, gc.IsNil)
	c.Assert(data, gc.Equals, graph.VertexData{TrustRank: 0.5})
	c.Assert(s.met.Snapshot().VerticesIngested, gc.Equals, uint64(4))
}

func (s *IngestTestSuite) TestDuplicateVertexKeepsLaterRow(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("https://a.example")
	g.AddURL("https://b.example")
	g.AddURL("https://a.example")

	vi := s.ingestVertices(c, g)
	c.Assert(vi.NumVertices(), gc.Equals, uint64(3))
	c.Assert(vi.Collisions(), gc.Equals, uint64(1))
	c.Assert(s.m.Len(), gc.Equals, uint64(2))

	idx, _, err := s.m.Lookup(identity.HashString("https://a.example"))
	c.Assert(err, gc.IsNil)
	c.Assert(idx, gc.Equals, uint64(2))
	c.Assert(s.hook.LastEntry().Level, gc.Equals, logrus.WarnLevel)
	c.Assert(s.met.Snapshot().Collisions, gc.Equals, uint64(1))
}

func (s *IngestTestSuite) TestVertexStoresOutOfStep(c *gc.C) {
	_, err := s.ids.Append(identity.Identity{Hi: 42})
	c.Assert(err, gc.IsNil)

	g := memgraph.NewInMemoryGraph()
	g.AddURL("https://a.example")
	vi, err := ingest.NewVertexIngester(ingest.VertexIngesterConfig{Map: s.m, Identities: s.ids, Data: s.vdata})
	c.Assert(err, gc.IsNil)
	it, err := g.Vertices()
	c.Assert(err, gc.IsNil)
	_, err = vi.Ingest(context.TODO(), it)
	c.Assert(xerrors.Is(err, ingest.ErrOutOfStep), gc.Equals, true)
}

func (s *IngestTestSuite) TestEdgeResolution(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("A")
	g.AddURL("B")
	g.AddURL("C")
	g.AddEdge("A", "B")
	g.AddEdge("B", "D")
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)
	loader.EXPECT().AddEdge(uint64(0), uint64(1)).Return(nil).Times(1)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	stats, err := s.edgeIngester(c, ingest.EdgeIngesterConfig{}).Ingest(context.TODO(), it, loader)
	c.Assert(err, gc.IsNil)
	c.Assert(stats, gc.DeepEquals, ingest.Stats{Read: 2, Forwarded: 1, DroppedDestination: 1})
	c.Assert(s.droppedSides(), gc.DeepEquals, []string{"destination"})
}

func (s *IngestTestSuite) TestUnknownSourceReportedOnce(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("A")
	g.AddEdge("X", "Y")
	g.AddEdge("X", "A")
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	stats, err := s.edgeIngester(c, ingest.EdgeIngesterConfig{}).Ingest(context.TODO(), it, loader)
	c.Assert(err, gc.IsNil)
	c.Assert(stats, gc.DeepEquals, ingest.Stats{Read: 2, DroppedSource: 2})
	c.Assert(s.droppedSides(), gc.DeepEquals, []string{"source", "source"})

	snap := s.met.Snapshot()
	c.Assert(snap.DroppedSource, gc.Equals, uint64(2))
	c.Assert(snap.DroppedDestination, gc.Equals, uint64(0))
}

func (s *IngestTestSuite) TestEdgesForwardedInSourceOrder(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	names := []string{"v0", "v1", "v2", "v3", "v4"}
	for _, n := range names {
		g.AddURL(n)
	}
	var expCalls []*gomock.Call
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)
	for i := range names {
		for j := range names {
			if i == j {
				continue
			}
			g.AddEdge(names[i], names[j])
			expCalls = append(expCalls, loader.EXPECT().AddEdge(uint64(i), uint64(j)).Return(nil))
		}
	}
	gomock.InOrder(expCalls...)
	s.ingestVertices(c, g)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	stats, err := s.edgeIngester(c, ingest.EdgeIngesterConfig{}).Ingest(context.TODO(), it, loader)
	c.Assert(err, gc.IsNil)
	c.Assert(stats.Forwarded, gc.Equals, uint64(len(expCalls)))
}

func (s *IngestTestSuite) TestHashWorkerPool(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	for i := 0; i < 50; i++ {
		g.AddURL(string(rune('a' + i%26)) + string(rune('0'+i/26)))
	}
	for i := 0; i < 49; i++ {
		g.AddEdge(string(rune('a'+i%26))+string(rune('0'+i/26)), string(rune('a'+(i+1)%26))+string(rune('0'+(i+1)/26)))
	}
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)
	// Edges reach the loader in source order despite the parallel hashing.
	calls := make([]*gomock.Call, 49)
	for i := range calls {
		calls[i] = loader.EXPECT().AddEdge(uint64(i), uint64(i+1)).Return(nil)
	}
	gomock.InOrder(calls...)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	stats, err := s.edgeIngester(c, ingest.EdgeIngesterConfig{HashWorkers: 4}).Ingest(context.TODO(), it, loader)
	c.Assert(err, gc.IsNil)
	c.Assert(stats.Forwarded, gc.Equals, uint64(49))
}

func (s *IngestTestSuite) TestPrehashedEdges(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	a := identity.Identity{Hi: 1, Lo: 2}
	b := identity.Identity{Hi: 3, Lo: 4}
	g.AddVertex(&graph.Vertex{ID: a, HasID: true})
	g.AddVertex(&graph.Vertex{ID: b, HasID: true})
	g.AddEdge(b.String(), a.String())
	g.AddEdge("not-an-identity", a.String())
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)
	loader.EXPECT().AddEdge(uint64(1), uint64(0)).Return(nil)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	stats, err := s.edgeIngester(c, ingest.EdgeIngesterConfig{Prehashed: true}).Ingest(context.TODO(), it, loader)
	c.Assert(err, gc.IsNil)
	c.Assert(stats, gc.DeepEquals, ingest.Stats{Read: 2, Forwarded: 1, Malformed: 1})
	c.Assert(s.met.Snapshot().EdgesMalformed, gc.Equals, uint64(1))
}

func (s *IngestTestSuite) TestPrehashedStrict(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("A")
	g.AddEdge("garbage", "1-2")
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	_, err = s.edgeIngester(c, ingest.EdgeIngesterConfig{Prehashed: true, Strict: true}).Ingest(context.TODO(), it, loader)
	c.Assert(xerrors.Is(err, graph.ErrMalformedEdge), gc.Equals, true)
}

func (s *IngestTestSuite) TestLoaderError(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("A")
	g.AddURL("B")
	g.AddEdge("A", "B")
	s.ingestVertices(c, g)

	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	loader := mocks.NewMockEdgeLoader(ctrl)
	loader.EXPECT().AddEdge(uint64(0), uint64(1)).Return(shard.ErrNotPreprocessing)

	it, err := g.Edges()
	c.Assert(err, gc.IsNil)
	_, err = s.edgeIngester(c, ingest.EdgeIngesterConfig{}).Ingest(context.TODO(), it, loader)
	c.Assert(xerrors.Is(err, shard.ErrNotPreprocessing), gc.Equals, true)
}

func (s *IngestTestSuite) TestEdgeIngesterConfigValidation(c *gc.C) {
	_, err := ingest.NewEdgeIngester(ingest.EdgeIngesterConfig{HashWorkers: -1})
	c.Assert(err, gc.ErrorMatches, "(?s).*identity map has not been provided.*invalid value for hash workers.*")
}

func (s *IngestTestSuite) TestLoaderProtocol(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	store := mocks.NewMockGraphStore(ctrl)
	gomock.InOrder(
		store.EXPECT().StartPreprocessing().Return(nil),
		store.EXPECT().AddEdge(uint64(0), uint64(1)).Return(nil),
		store.EXPECT().AddEdge(uint64(2), uint64(0)).Return(nil),
		store.EXPECT().EndPreprocessing().Return(nil),
		store.EXPECT().SetNumVertices(uint64(3)).Return(nil),
		store.EXPECT().ExecuteSharding(shard.Auto).Return(1, nil),
	)

	feed := func(_ context.Context, l ingest.EdgeLoader) error {
		if err := l.AddEdge(0, 1); err != nil {
			return err
		}
		return l.AddEdge(2, 0)
	}
	n, err := ingest.NewLoader(store, s.met, s.logger).Load(context.TODO(), feed, 3, shard.Auto)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 1)
	c.Assert(s.met.Snapshot().Shards, gc.Equals, 1)
}

func (s *IngestTestSuite) TestLoaderFeedError(c *gc.C) {
	ctrl := gomock.NewController(c)
	defer ctrl.Finish()
	store := mocks.NewMockGraphStore(ctrl)
	gomock.InOrder(
		store.EXPECT().StartPreprocessing().Return(nil),
		store.EXPECT().EndPreprocessing().Return(nil),
	)

	feedErr := xerrors.New("feed failed")
	feed := func(context.Context, ingest.EdgeLoader) error { return feedErr }
	_, err := ingest.NewLoader(store, nil, nil).Load(context.TODO(), feed, 3, shard.Fixed(2))
	c.Assert(xerrors.Is(err, feedErr), gc.Equals, true)
}

func (s *IngestTestSuite) TestLoadIntoSharder(c *gc.C) {
	g := memgraph.NewInMemoryGraph()
	g.AddURL("A")
	g.AddURL("B")
	g.AddURL("C")
	g.AddEdge("A", "B")
	g.AddEdge("B", "D")
	g.AddEdge("C", "A")
	s.ingestVertices(c, g)

	dir := c.MkDir()
	sharder, err := shard.NewSharder[graph.VertexData, graph.VertexData](shard.Config{Dir: dir})
	c.Assert(err, gc.IsNil)

	ei := s.edgeIngester(c, ingest.EdgeIngesterConfig{})
	var stats ingest.Stats
	feed := func(ctx context.Context, l ingest.EdgeLoader) error {
		it, err := g.Edges()
		if err != nil {
			return err
		}
		defer func() { _ = it.Close() }()
		stats, err = ei.Ingest(ctx, it, l)
		return err
	}
	n, err := ingest.NewLoader(sharder, nil, nil).Load(context.TODO(), feed, s.ids.Len(), shard.Auto)
	c.Assert(err, gc.IsNil)
	c.Assert(n, gc.Equals, 1)
	c.Assert(stats.Forwarded, gc.Equals, uint64(2))

	m, err := shard.LoadManifest(dir, shard.DefaultName)
	c.Assert(err, gc.IsNil)
	c.Assert(m.NumVertices, gc.Equals, uint64(3))
	c.Assert(m.NumEdges, gc.Equals, uint64(2))
}

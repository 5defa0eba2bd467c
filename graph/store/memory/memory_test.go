package memory

import (
	"database/sql"
	"testing"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(InMemoryGraphTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type InMemoryGraphTestSuite struct {
	g *InMemoryGraph
}

func (s *InMemoryGraphTestSuite) SetUpTest(c *gc.C) {
	s.g = NewInMemoryGraph()
}

func (s *InMemoryGraphTestSuite) TestVerticesInInsertionOrder(c *gc.C) {
	s.g.AddURL("https://a.example")
	s.g.AddVertex(&graph.Vertex{
		URL:       "https://b.example",
		TrustRank: sql.NullFloat64{Float64: 0.5, Valid: true},
	})

	it, err := s.g.Vertices()
	c.Assert(err, gc.IsNil)
	var urls []string
	var data []graph.VertexData
	for it.Next() {
		v := it.Vertex()
		urls = append(urls, v.URL)
		data = append(data, v.Data())
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)

	c.Assert(urls, gc.DeepEquals, []string{"https://a.example", "https://b.example"})
	c.Assert(data, gc.DeepEquals, []graph.VertexData{{}, {TrustRank: 0.5}})
}

func (s *InMemoryGraphTestSuite) TestIteratorWorksOnSnapshot(c *gc.C) {
	s.g.AddEdge("a", "b")
	it, err := s.g.Edges()
	c.Assert(err, gc.IsNil)

	// Edges added after the iterator was created are not visible to it.
	s.g.AddEdge("b", "c")

	var got []graph.Edge
	for it.Next() {
		got = append(got, *it.Edge())
	}
	c.Assert(got, gc.DeepEquals, []graph.Edge{{Src: "a", Dst: "b", Line: 1}})
}

func (s *InMemoryGraphTestSuite) TestVertexIdentity(c *gc.C) {
	v := &graph.Vertex{URL: "https://a.example"}
	c.Assert(v.Identity(), gc.Equals, identity.HashString("https://a.example"))

	id := identity.Identity{Hi: 1, Lo: 2}
	v = &graph.Vertex{URL: "ignored", ID: id, HasID: true}
	c.Assert(v.Identity(), gc.Equals, id)
}

package pq

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/Ahmed-Sermani/webrank/graph"
	"github.com/Ahmed-Sermani/webrank/identity"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PostgresVertexSourceTestSuite))

type PostgresVertexSourceTestSuite struct {
	dsn string
	db  *sql.DB
}

func Test(t *testing.T) {
	gc.TestingT(t)
}

func (s *PostgresVertexSourceTestSuite) SetUpSuite(c *gc.C) {
	s.dsn = os.Getenv("PG_DSN")
	if s.dsn == "" {
		c.Skip("missing PG_DSN; skipping postgres vertex source tests")
	}

	db, err := sql.Open("postgres", s.dsn)
	c.Assert(err, gc.IsNil)
	s.db = db
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS scores_test (
		url TEXT, hashl BIGINT, hashr BIGINT, trustrank DOUBLE PRECISION, pornrank DOUBLE PRECISION
	)`)
	c.Assert(err, gc.IsNil)
}

func (s *PostgresVertexSourceTestSuite) TearDownSuite(c *gc.C) {
	if s.db != nil {
		_, err := s.db.Exec("DROP TABLE IF EXISTS scores_test")
		c.Assert(err, gc.IsNil)
		c.Assert(s.db.Close(), gc.IsNil)
	}
}

func (s *PostgresVertexSourceTestSuite) SetUpTest(c *gc.C) {
	_, err := s.db.Exec("DELETE FROM scores_test")
	c.Assert(err, gc.IsNil)
}

func (s *PostgresVertexSourceTestSuite) TestURLRows(c *gc.C) {
	_, err := s.db.Exec(`INSERT INTO scores_test (url, trustrank, pornrank) VALUES
		('https://a.example', 0.5, NULL), ('https://b.example', NULL, 0.25)`)
	c.Assert(err, gc.IsNil)

	got := s.readAll(c, Options{Table: "scores_test"})
	c.Assert(got, gc.HasLen, 2)

	byURL := make(map[string]*graph.Vertex)
	for _, v := range got {
		byURL[v.URL] = v
	}
	c.Assert(byURL["https://a.example"].Data(), gc.Equals, graph.VertexData{TrustRank: 0.5})
	c.Assert(byURL["https://a.example"].PornRank.Valid, gc.Equals, false)
	c.Assert(byURL["https://b.example"].Data(), gc.Equals, graph.VertexData{PornRank: 0.25})
}

func (s *PostgresVertexSourceTestSuite) TestPrehashedRows(c *gc.C) {
	_, err := s.db.Exec(`INSERT INTO scores_test (hashl, hashr, trustrank) VALUES (-1, 7, 1)`)
	c.Assert(err, gc.IsNil)

	got := s.readAll(c, Options{Table: "scores_test", Prehashed: true})
	c.Assert(got, gc.HasLen, 1)
	c.Assert(got[0].HasID, gc.Equals, true)
	c.Assert(got[0].Identity(), gc.Equals, identity.Identity{Hi: ^uint64(0), Lo: 7})
}

func (s *PostgresVertexSourceTestSuite) TestMissingTable(c *gc.C) {
	src, err := NewPostgresVertexSource(s.dsn, Options{Table: "no_such_table"})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(src.Close(), gc.IsNil) }()

	_, err = src.Vertices(context.TODO())
	c.Assert(err, gc.NotNil)
}

func (s *PostgresVertexSourceTestSuite) readAll(c *gc.C, opts Options) []*graph.Vertex {
	src, err := NewPostgresVertexSource(s.dsn, opts)
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(src.Close(), gc.IsNil) }()

	it, err := src.Vertices(context.TODO())
	c.Assert(err, gc.IsNil)
	var out []*graph.Vertex
	for it.Next() {
		out = append(out, it.Vertex())
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	return out
}

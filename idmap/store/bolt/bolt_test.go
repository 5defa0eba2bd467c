package bolt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap/idmaptest"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(BoltMapTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type BoltMapTestSuite struct {
	idmaptest.SuiteBase
	m *BoltMap
}

func (s *BoltMapTestSuite) SetUpTest(c *gc.C) {
	// A tiny batch size forces the conformance tests through several
	// commits.
	m, err := Open(filepath.Join(c.MkDir(), "idmap.db"), Options{BatchSize: 7, Temporary: true})
	c.Assert(err, gc.IsNil)
	s.m = m
	s.SetMap(m)
}

func (s *BoltMapTestSuite) TearDownTest(c *gc.C) {
	c.Assert(s.m.Close(), gc.IsNil)
}

func (s *BoltMapTestSuite) TestReplacementAcrossCommits(c *gc.C) {
	id := identity.HashString("https://example.com")
	_, _, err := s.m.Insert(id, 0)
	c.Assert(err, gc.IsNil)
	for i := uint64(1); i < 20; i++ {
		_, _, err = s.m.Insert(identity.Identity{Hi: i}, i)
		c.Assert(err, gc.IsNil)
	}

	prev, replaced, err := s.m.Insert(id, 20)
	c.Assert(err, gc.IsNil)
	c.Assert(replaced, gc.Equals, true)
	c.Assert(prev, gc.Equals, uint64(0))
	c.Assert(s.m.Len(), gc.Equals, uint64(20))
}

func (s *BoltMapTestSuite) TestTemporaryFileRemovedOnClose(c *gc.C) {
	path := filepath.Join(c.MkDir(), "tmp.db")
	m, err := Open(path, Options{Temporary: true})
	c.Assert(err, gc.IsNil)
	_, err = os.Stat(path)
	c.Assert(err, gc.IsNil)

	c.Assert(m.Close(), gc.IsNil)
	_, err = os.Stat(path)
	c.Assert(os.IsNotExist(err), gc.Equals, true)

	// Closing twice is harmless.
	c.Assert(m.Close(), gc.IsNil)
}

func (s *BoltMapTestSuite) TestOpenReplacesExistingFile(c *gc.C) {
	path := filepath.Join(c.MkDir(), "reused.db")
	m, err := Open(path, Options{})
	c.Assert(err, gc.IsNil)
	_, _, err = m.Insert(identity.Identity{Hi: 1}, 0)
	c.Assert(err, gc.IsNil)
	c.Assert(m.Seal(), gc.IsNil)
	c.Assert(m.Close(), gc.IsNil)

	m, err = Open(path, Options{Temporary: true})
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(m.Close(), gc.IsNil) }()
	c.Assert(m.Seal(), gc.IsNil)
	_, found, err := m.Lookup(identity.Identity{Hi: 1})
	c.Assert(err, gc.IsNil)
	c.Assert(found, gc.Equals, false)
}

package idmaptest

import (
	"fmt"

	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of identity map tests that can be
// executed against any type that implements idmap.Map.
type SuiteBase struct {
	m idmap.Map
}

// SetMap configures the test-suite to run all tests against m.
func (s *SuiteBase) SetMap(m idmap.Map) {
	s.m = m
}

func (s *SuiteBase) TestInsertAndLookup(c *gc.C) {
	ids := make([]identity.Identity, 100)
	for i := range ids {
		ids[i] = identity.HashString(fmt.Sprintf("https://example.com/%d", i))
		_, replaced, err := s.m.Insert(ids[i], uint64(i))
		c.Assert(err, gc.IsNil)
		c.Assert(replaced, gc.Equals, false)
	}
	c.Assert(s.m.Seal(), gc.IsNil)
	c.Assert(s.m.Len(), gc.Equals, uint64(len(ids)))

	for i, id := range ids {
		index, found, err := s.m.Lookup(id)
		c.Assert(err, gc.IsNil)
		c.Assert(found, gc.Equals, true, gc.Commentf("identity %v", id))
		c.Assert(index, gc.Equals, uint64(i))
	}
}

func (s *SuiteBase) TestLookupMissingIdentity(c *gc.C) {
	_, _, err := s.m.Insert(identity.HashString("https://example.com"), 0)
	c.Assert(err, gc.IsNil)
	c.Assert(s.m.Seal(), gc.IsNil)

	index, found, err := s.m.Lookup(identity.HashString("https://example.org"))
	c.Assert(err, gc.IsNil)
	c.Assert(found, gc.Equals, false)
	c.Assert(index, gc.Equals, uint64(0))
}

func (s *SuiteBase) TestReplacedIdentityKeepsLatestIndex(c *gc.C) {
	id := identity.Identity{Hi: 7, Lo: 7}
	_, replaced, err := s.m.Insert(id, 3)
	c.Assert(err, gc.IsNil)
	c.Assert(replaced, gc.Equals, false)

	prev, replaced, err := s.m.Insert(id, 9)
	c.Assert(err, gc.IsNil)
	c.Assert(replaced, gc.Equals, true)
	c.Assert(prev, gc.Equals, uint64(3))

	c.Assert(s.m.Seal(), gc.IsNil)
	c.Assert(s.m.Len(), gc.Equals, uint64(1))
	index, found, err := s.m.Lookup(id)
	c.Assert(err, gc.IsNil)
	c.Assert(found, gc.Equals, true)
	c.Assert(index, gc.Equals, uint64(9))
}

func (s *SuiteBase) TestPhasesDoNotOverlap(c *gc.C) {
	id := identity.Identity{Hi: 1, Lo: 2}
	_, _, err := s.m.Lookup(id)
	c.Assert(xerrors.Is(err, idmap.ErrNotSealed), gc.Equals, true)

	c.Assert(s.m.Seal(), gc.IsNil)
	_, _, err = s.m.Insert(id, 0)
	c.Assert(xerrors.Is(err, idmap.ErrSealed), gc.Equals, true)
}

func (s *SuiteBase) TestEmptyMap(c *gc.C) {
	c.Assert(s.m.Seal(), gc.IsNil)
	c.Assert(s.m.Len(), gc.Equals, uint64(0))
	_, found, err := s.m.Lookup(identity.Identity{})
	c.Assert(err, gc.IsNil)
	c.Assert(found, gc.Equals, false)
}

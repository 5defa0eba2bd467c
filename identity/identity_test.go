package identity

import (
	"sort"
	"testing"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(IdentityTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type IdentityTestSuite struct{}

func (s *IdentityTestSuite) TestHashIsDeterministic(c *gc.C) {
	url := "https://example.com/about"
	c.Assert(HashString(url), gc.Equals, HashString(url))
	c.Assert(Hash([]byte(url)), gc.Equals, HashString(url))
}

func (s *IdentityTestSuite) TestDistinctURLsYieldDistinctIdentities(c *gc.C) {
	seen := make(map[Identity]string)
	for _, url := range []string{
		"https://example.com",
		"https://example.com/",
		"http://example.com",
		"https://example.org",
		"https://example.com/a?b=c",
		"",
	} {
		id := HashString(url)
		prev, dup := seen[id]
		c.Assert(dup, gc.Equals, false, gc.Commentf("%q and %q share identity %v", url, prev, id))
		seen[id] = url
	}
}

func (s *IdentityTestSuite) TestCompare(c *gc.C) {
	a := Identity{Hi: 1, Lo: 9}
	b := Identity{Hi: 2, Lo: 0}
	d := Identity{Hi: 2, Lo: 1}

	c.Assert(a.Compare(b), gc.Equals, -1)
	c.Assert(b.Compare(a), gc.Equals, 1)
	c.Assert(b.Compare(d), gc.Equals, -1)
	c.Assert(d.Compare(d), gc.Equals, 0)
	c.Assert(a.Less(d), gc.Equals, true)
}

func (s *IdentityTestSuite) TestBinaryOrderMatchesCompare(c *gc.C) {
	ids := []Identity{
		{Hi: 5, Lo: 1},
		{Hi: 0, Lo: ^uint64(0)},
		{Hi: 5, Lo: 0},
		{Hi: ^uint64(0), Lo: 0},
		{Hi: 1 << 63, Lo: 7},
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		b, err := id.MarshalBinary()
		c.Assert(err, gc.IsNil)
		keys[i] = string(b)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	sort.Strings(keys)
	for i, k := range keys {
		got, err := FromBytes([]byte(k))
		c.Assert(err, gc.IsNil)
		c.Assert(got, gc.Equals, ids[i])
	}
}

func (s *IdentityTestSuite) TestFromBytesRejectsShortInput(c *gc.C) {
	_, err := FromBytes([]byte{1, 2, 3})
	c.Assert(err, gc.ErrorMatches, "unmarshal identity from 3 bytes: invalid identity")
}

func (s *IdentityTestSuite) TestStringAndParse(c *gc.C) {
	id := Identity{Hi: 18446744073709551615, Lo: 42}
	c.Assert(id.String(), gc.Equals, "18446744073709551615-42")

	got, err := Parse(id.String())
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, id)

	for _, bad := range []string{"", "12", "a-1", "1-b", "-1"} {
		_, err = Parse(bad)
		c.Assert(err, gc.NotNil, gc.Commentf("input %q", bad))
	}
}

func (s *IdentityTestSuite) TestUUIDRoundTrip(c *gc.C) {
	id := HashString("https://example.com")
	c.Assert(FromUUID(id.UUID()), gc.Equals, id)
}

func (s *IdentityTestSuite) TestFromWords(c *gc.C) {
	id := FromWords(-1, 3)
	c.Assert(id, gc.Equals, Identity{Hi: ^uint64(0), Lo: 3})
}

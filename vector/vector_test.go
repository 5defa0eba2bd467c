package vector

import (
	"path/filepath"
	"testing"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(VectorTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type VectorTestSuite struct {
	dir string
}

type record struct {
	A float32
	B uint64
}

func (s *VectorTestSuite) SetUpTest(c *gc.C) {
	s.dir = c.MkDir()
}

func (s *VectorTestSuite) TestAppendAndRead(c *gc.C) {
	v, err := Create[record](filepath.Join(s.dir, "v"))
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(v.Close(), gc.IsNil) }()
	c.Assert(v.ElemSize(), gc.Equals, 12)

	for i := 0; i < 10; i++ {
		pos, err := v.Append(record{A: float32(i) / 2, B: uint64(i * i)})
		c.Assert(err, gc.IsNil)
		c.Assert(pos, gc.Equals, uint64(i))
	}
	c.Assert(v.Len(), gc.Equals, uint64(10))

	got, err := v.Get(7)
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, record{A: 3.5, B: 49})

	dst := make([]record, 3)
	c.Assert(v.ReadRange(2, dst), gc.IsNil)
	c.Assert(dst, gc.DeepEquals, []record{{1, 4}, {1.5, 9}, {2, 16}})
}

func (s *VectorTestSuite) TestWriteRange(c *gc.C) {
	v, err := Create[uint64](filepath.Join(s.dir, "v"))
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(v.Close(), gc.IsNil) }()

	for i := uint64(0); i < 5; i++ {
		_, err = v.Append(i)
		c.Assert(err, gc.IsNil)
	}
	c.Assert(v.WriteRange(1, []uint64{10, 20}), gc.IsNil)

	// Appends after an in-place write still go to the end.
	_, err = v.Append(5)
	c.Assert(err, gc.IsNil)

	var got []uint64
	err = v.ForEach(func(_ uint64, val uint64) error {
		got = append(got, val)
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.DeepEquals, []uint64{0, 10, 20, 3, 4, 5})
}

func (s *VectorTestSuite) TestOutOfRange(c *gc.C) {
	v, err := Create[uint32](filepath.Join(s.dir, "v"))
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(v.Close(), gc.IsNil) }()

	_, err = v.Get(0)
	c.Assert(xerrors.Is(err, ErrOutOfRange), gc.Equals, true)
	err = v.WriteRange(0, []uint32{1})
	c.Assert(xerrors.Is(err, ErrOutOfRange), gc.Equals, true)
}

func (s *VectorTestSuite) TestReopenAndResize(c *gc.C) {
	path := filepath.Join(s.dir, "v")
	v, err := Create[uint32](path)
	c.Assert(err, gc.IsNil)
	_, err = v.Append(42)
	c.Assert(err, gc.IsNil)
	c.Assert(v.Close(), gc.IsNil)

	v, err = Open[uint32](path)
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(v.Close(), gc.IsNil) }()
	c.Assert(v.Len(), gc.Equals, uint64(1))

	c.Assert(v.Resize(4), gc.IsNil)
	dst := make([]uint32, 4)
	c.Assert(v.ReadRange(0, dst), gc.IsNil)
	c.Assert(dst, gc.DeepEquals, []uint32{42, 0, 0, 0})
}

func (s *VectorTestSuite) TestForEachSpansChunks(c *gc.C) {
	v, err := Create[uint32](filepath.Join(s.dir, "v"))
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(v.Close(), gc.IsNil) }()

	n := iterChunk*2 + 17
	for i := 0; i < n; i++ {
		_, err = v.Append(uint32(i))
		c.Assert(err, gc.IsNil)
	}

	var visited int
	err = v.ForEach(func(i uint64, val uint32) error {
		c.Assert(uint64(val), gc.Equals, i)
		visited++
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(visited, gc.Equals, n)
}

func (s *VectorTestSuite) TestVariableSizeTypeRejected(c *gc.C) {
	_, err := Create[string](filepath.Join(s.dir, "v"))
	c.Assert(xerrors.Is(err, ErrVariableSize), gc.Equals, true)
}

package partition

import (
	"testing"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RangeTestSuite))

func Test(t *testing.T) {
	gc.TestingT(t)
}

type RangeTestSuite struct{}

func (s *RangeTestSuite) TestNewRangeErrors(c *gc.C) {
	_, err := NewRange(10, 0, 1)
	c.Assert(err, gc.ErrorMatches, "range start must be less than the range end")

	_, err = NewRange(0, 10, 0)
	c.Assert(err, gc.ErrorMatches, "number of partitions must be at least equal to 1")

	_, err = NewRange(0, 2, 3)
	c.Assert(err, gc.ErrorMatches, "cannot split 2 indices into 3 partitions")
}

func (s *RangeTestSuite) TestEvenSplit(c *gc.C) {
	r, err := NewRange(0, 12, 4)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{0, 3}, {3, 6}, {6, 9}, {9, 12}})
}

func (s *RangeTestSuite) TestOddSplit(c *gc.C) {
	r, err := NewRange(5, 15, 3)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{5, 8}, {8, 11}, {11, 15}})
}

func (s *RangeTestSuite) TestWeightedSplit(c *gc.C) {
	// The heavy vertex 1 gets an interval of its own.
	r, err := NewWeightedRange([]uint32{0, 20, 0, 0, 0, 0}, 2)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{0, 2}, {2, 6}})
}

func (s *RangeTestSuite) TestWeightedSplitNeverEmpty(c *gc.C) {
	// All the weight sits at the start; the trailing partitions still get
	// one index each.
	r, err := NewWeightedRange([]uint32{1000, 0, 0}, 3)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{0, 1}, {1, 2}, {2, 3}})

	r, err = NewWeightedRange([]uint32{0, 0, 1000}, 3)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{0, 1}, {1, 2}, {2, 3}})
}

func (s *RangeTestSuite) TestWeightedSplitUniform(c *gc.C) {
	r, err := NewWeightedRange(make([]uint32, 8), 4)
	c.Assert(err, gc.IsNil)
	assertExtents(c, r, [][2]uint64{{0, 2}, {2, 4}, {4, 6}, {6, 8}})
}

func (s *RangeTestSuite) TestPartitionOf(c *gc.C) {
	r, err := NewRange(0, 10, 3)
	c.Assert(err, gc.IsNil)
	// splits: [0,3) [3,6) [6,10)
	c.Assert(r.PartitionOf(0), gc.Equals, 0)
	c.Assert(r.PartitionOf(2), gc.Equals, 0)
	c.Assert(r.PartitionOf(3), gc.Equals, 1)
	c.Assert(r.PartitionOf(9), gc.Equals, 2)
	c.Assert(r.PartitionOf(10), gc.Equals, -1)
}

func (s *RangeTestSuite) TestPartitionExtentsError(c *gc.C) {
	r, err := NewRange(0, 4, 1)
	c.Assert(err, gc.IsNil)

	_, _, err = r.PartitionExtents(1)
	c.Assert(err, gc.ErrorMatches, "invalid partition index")
}

func assertExtents(c *gc.C, r Range, exp [][2]uint64) {
	c.Assert(r.NumPartitions(), gc.Equals, len(exp))
	for i, e := range exp {
		c.Logf("extent: %d", i)
		from, to, err := r.PartitionExtents(i)
		c.Assert(err, gc.IsNil)
		c.Assert([2]uint64{from, to}, gc.Equals, e)
	}
}

// Package partition splits a dense vertex index space into contiguous
// intervals.
package partition

import (
	"sort"

	"golang.org/x/xerrors"
)

// Range represents a contiguous region [start, end) of vertex indices which
// is split into a number of partitions.
type Range struct {
	start       uint64
	rangeSplits []uint64
}

// NewRange creates a new range [start, end) and splits it into the provided
// number of partitions of (almost) equal size.
func NewRange(start, end uint64, numPartitions int) (Range, error) {
	if start >= end {
		return Range{}, xerrors.Errorf("range start must be less than the range end")
	} else if numPartitions <= 0 {
		return Range{}, xerrors.Errorf("number of partitions must be at least equal to 1")
	} else if uint64(numPartitions) > end-start {
		return Range{}, xerrors.Errorf("cannot split %d indices into %d partitions", end-start, numPartitions)
	}

	var (
		size   = end - start
		splits = make([]uint64, numPartitions)
	)
	for partition := 0; partition < numPartitions; partition++ {
		if partition == numPartitions-1 {
			splits[partition] = end
			continue
		}
		// distribute the remainder over the leading partitions.
		splits[partition] = start + size*uint64(partition+1)/uint64(numPartitions)
	}

	return Range{start: start, rangeSplits: splits}, nil
}

// NewWeightedRange splits [0, len(weights)) into numPartitions intervals so
// that every interval carries roughly the same total weight. Each index also
// counts as one unit of weight so that zero-weight regions still get spread
// and no partition ends up empty.
func NewWeightedRange(weights []uint32, numPartitions int) (Range, error) {
	n := uint64(len(weights))
	if n == 0 {
		return Range{}, xerrors.Errorf("cannot partition an empty range")
	} else if numPartitions <= 0 {
		return Range{}, xerrors.Errorf("number of partitions must be at least equal to 1")
	} else if uint64(numPartitions) > n {
		return Range{}, xerrors.Errorf("cannot split %d indices into %d partitions", n, numPartitions)
	}

	var total uint64
	for _, w := range weights {
		total += uint64(w) + 1
	}

	var (
		splits    = make([]uint64, 0, numPartitions)
		cum       uint64
		partition uint64
		parts     = uint64(numPartitions)
	)
	for i, w := range weights {
		idx := uint64(i)
		cum += uint64(w) + 1
		if partition == parts-1 {
			break
		}

		remainingIdx := n - idx - 1
		remainingParts := parts - partition - 1
		mustCut := remainingIdx == remainingParts
		if mustCut || cum*parts >= total*(partition+1) {
			splits = append(splits, idx+1)
			partition++
		}
	}
	splits = append(splits, n)

	return Range{start: 0, rangeSplits: splits}, nil
}

// NumPartitions returns the number of partitions in the range.
func (r Range) NumPartitions() int {
	return len(r.rangeSplits)
}

// PartitionExtents returns the [start, end) range for the requested partition.
func (r Range) PartitionExtents(partition int) (uint64, uint64, error) {
	if partition < 0 || partition >= len(r.rangeSplits) {
		return 0, 0, xerrors.Errorf("invalid partition index")
	}

	if partition == 0 {
		return r.start, r.rangeSplits[0], nil
	}
	return r.rangeSplits[partition-1], r.rangeSplits[partition], nil
}

// PartitionOf returns the partition holding index, or -1 if the index lies
// outside the range.
func (r Range) PartitionOf(index uint64) int {
	if len(r.rangeSplits) == 0 || index < r.start || index >= r.rangeSplits[len(r.rangeSplits)-1] {
		return -1
	}
	return sort.Search(len(r.rangeSplits), func(i int) bool {
		return index < r.rangeSplits[i]
	})
}

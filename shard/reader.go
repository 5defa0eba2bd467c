package shard

import (
	"container/heap"
	"sort"

	"github.com/Ahmed-Sermani/webrank/vector"
	"golang.org/x/xerrors"
)

// VertexValue pairs a vertex index with its value.
type VertexValue[VT any] struct {
	Index uint64
	Value VT
}

// VisitVertices invokes visitFn for the value of every vertex of graph name
// in index order.
func VisitVertices[VT any](dir, name string, visitFn func(index uint64, val VT) error) error {
	vdata, err := vector.Open[VT](VertexDataPath(dir, name))
	if err != nil {
		return xerrors.Errorf("visit vertices: %w", err)
	}
	err = vdata.ForEach(visitFn)
	if cErr := vdata.Close(); err == nil {
		err = cErr
	}
	return err
}

// TopVertices returns the n vertices with the greatest values according to
// less, greatest first. Ties are broken by ascending index.
func TopVertices[VT any](dir, name string, n int, less func(a, b VT) bool) ([]VertexValue[VT], error) {
	if n <= 0 {
		return nil, nil
	}

	h := &topHeap[VT]{less: less}
	err := VisitVertices(dir, name, func(index uint64, val VT) error {
		cand := VertexValue[VT]{Index: index, Value: val}
		if h.Len() < n {
			heap.Push(h, cand)
		} else if h.worse(h.items[0], cand) {
			h.items[0] = cand
			heap.Fix(h, 0)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("top vertices: %w", err)
	}

	out := h.items
	sort.Slice(out, func(i, j int) bool { return h.worse(out[j], out[i]) })
	return out, nil
}

// topHeap is a min-heap keeping the worst retained candidate at its root.
type topHeap[VT any] struct {
	items []VertexValue[VT]
	less  func(a, b VT) bool
}

// worse reports whether a ranks below b.
func (h *topHeap[VT]) worse(a, b VertexValue[VT]) bool {
	if h.less(a.Value, b.Value) {
		return true
	}
	if h.less(b.Value, a.Value) {
		return false
	}
	return a.Index > b.Index
}

func (h *topHeap[VT]) Len() int           { return len(h.items) }
func (h *topHeap[VT]) Less(i, j int) bool { return h.worse(h.items[i], h.items[j]) }
func (h *topHeap[VT]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topHeap[VT]) Push(x any)         { h.items = append(h.items, x.(VertexValue[VT])) }

func (h *topHeap[VT]) Pop() any {
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last
}

package memory

import "github.com/Ahmed-Sermani/webrank/graph"

type vertexIterator struct {
	s *InMemoryGraph

	vertices []*graph.Vertex
	curIdx   int
}

func (i *vertexIterator) Next() bool {
	if i.curIdx >= len(i.vertices) {
		return false
	}
	i.curIdx++
	return true
}

func (i *vertexIterator) Vertex() *graph.Vertex {
	i.s.mu.RLock()
	v := new(graph.Vertex)
	*v = *i.vertices[i.curIdx-1]
	i.s.mu.RUnlock()
	return v
}

func (i *vertexIterator) Error() error {
	return nil
}

func (i *vertexIterator) Close() error {
	return nil
}

// edgeIterator is a graph.EdgeIterator implementation for the in-memory graph.
type edgeIterator struct {
	s *InMemoryGraph

	edges    []*graph.Edge
	curIndex int
}

func (i *edgeIterator) Next() bool {
	if i.curIndex >= len(i.edges) {
		return false
	}
	i.curIndex++
	return true
}

func (i *edgeIterator) Error() error {
	return nil
}

func (i *edgeIterator) Close() error {
	return nil
}

func (i *edgeIterator) Edge() *graph.Edge {
	i.s.mu.RLock()
	edge := new(graph.Edge)
	*edge = *i.edges[i.curIndex-1]
	i.s.mu.RUnlock()
	return edge
}

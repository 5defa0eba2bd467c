package memory

import (
	"sync"

	"github.com/Ahmed-Sermani/webrank/graph"
)

// InMemoryGraph holds vertex and edge records in memory and serves them
// through the graph iterator interfaces. It is used by tests and by small
// imports that are assembled programmatically.
type InMemoryGraph struct {
	mu sync.RWMutex

	vertices []*graph.Vertex
	edges    []*graph.Edge
}

// NewInMemoryGraph creates a new in-memory graph source.
func NewInMemoryGraph() *InMemoryGraph {
	return &InMemoryGraph{}
}

// AddVertex appends a vertex record. The record is copied.
func (s *InMemoryGraph) AddVertex(v *graph.Vertex) {
	vCopy := new(graph.Vertex)
	*vCopy = *v

	s.mu.Lock()
	s.vertices = append(s.vertices, vCopy)
	s.mu.Unlock()
}

// AddURL is a shorthand for appending a vertex with no trust or porn score.
func (s *InMemoryGraph) AddURL(url string) {
	s.AddVertex(&graph.Vertex{URL: url})
}

// AddEdge appends an edge record between two URLs (or textual identities).
func (s *InMemoryGraph) AddEdge(src, dst string) {
	s.mu.Lock()
	s.edges = append(s.edges, &graph.Edge{
		Src:  src,
		Dst:  dst,
		Line: uint64(len(s.edges) + 1),
	})
	s.mu.Unlock()
}

// Vertices returns an iterator over a snapshot of the vertex records in
// insertion order.
func (s *InMemoryGraph) Vertices() (graph.VertexIterator, error) {
	s.mu.RLock()
	list := append([]*graph.Vertex(nil), s.vertices...)
	s.mu.RUnlock()
	return &vertexIterator{s: s, vertices: list}, nil
}

// Edges returns an iterator over a snapshot of the edge records in
// insertion order.
func (s *InMemoryGraph) Edges() (graph.EdgeIterator, error) {
	s.mu.RLock()
	list := append([]*graph.Edge(nil), s.edges...)
	s.mu.RUnlock()
	return &edgeIterator{s: s, edges: list}, nil
}

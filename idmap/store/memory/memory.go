package memory

import (
	"sync"

	"github.com/Ahmed-Sermani/webrank/identity"
	"github.com/Ahmed-Sermani/webrank/idmap"
	"golang.org/x/xerrors"
)

var _ idmap.Map = (*InMemoryMap)(nil)

// InMemoryMap keeps the whole identity map in a Go map. It trades memory
// (roughly 40 bytes per vertex) for lookup speed and is meant for graphs that
// comfortably fit in RAM.
type InMemoryMap struct {
	mu      sync.RWMutex
	indices map[identity.Identity]uint64
	sealed  bool
}

// NewInMemoryMap creates an empty map.
func NewInMemoryMap() *InMemoryMap {
	return &InMemoryMap{
		indices: make(map[identity.Identity]uint64),
	}
}

func (m *InMemoryMap) Insert(id identity.Identity, index uint64) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return 0, false, xerrors.Errorf("insert %v: %w", id, idmap.ErrSealed)
	}

	prev, replaced := m.indices[id]
	m.indices[id] = index
	return prev, replaced, nil
}

func (m *InMemoryMap) Seal() error {
	m.mu.Lock()
	m.sealed = true
	m.mu.Unlock()
	return nil
}

func (m *InMemoryMap) Lookup(id identity.Identity) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.sealed {
		return 0, false, xerrors.Errorf("lookup %v: %w", id, idmap.ErrNotSealed)
	}

	index, found := m.indices[id]
	return index, found, nil
}

func (m *InMemoryMap) Len() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.indices))
}

func (m *InMemoryMap) Close() error {
	m.mu.Lock()
	m.indices = nil
	m.mu.Unlock()
	return nil
}

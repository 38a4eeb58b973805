// Package overlay holds the node's shared membership and forwarding state.
package overlay

import (
	"slices"
	"sync"
)

// NeighborTable is the node's adjacency list. Addresses are unique and kept
// in insertion order.
type NeighborTable struct {
	mu    sync.Mutex
	addrs []string
}

func NewNeighborTable() *NeighborTable {
	return &NeighborTable{}
}

// Add appends addr unless it is already present and reports whether it was added.
func (t *NeighborTable) Add(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.addrs, addr) {
		return false
	}
	t.addrs = append(t.addrs, addr)
	return true
}

// Remove deletes addr and reports whether it was present.
func (t *NeighborTable) Remove(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.Index(t.addrs, addr)
	if i < 0 {
		return false
	}
	t.addrs = slices.Delete(t.addrs, i, i+1)
	return true
}

func (t *NeighborTable) Contains(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Contains(t.addrs, addr)
}

func (t *NeighborTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.addrs)
}

// Snapshot returns a copy safe to iterate while doing network I/O.
func (t *NeighborTable) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.addrs)
}

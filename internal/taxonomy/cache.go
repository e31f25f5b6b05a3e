package taxonomy

import "sync"

// LineageCache memoizes per-id standard lineages. It is owned by a backend
// instance and safe for concurrent use; entries are never invalidated
// because the backing database is immutable after construction, so a cache
// is discarded only together with its backend.
type LineageCache[ID comparable] struct {
	mu sync.RWMutex
	m  map[ID]Lineage[ID]
}

// NewLineageCache creates an empty cache.
func NewLineageCache[ID comparable]() *LineageCache[ID] {
	return &LineageCache[ID]{m: make(map[ID]Lineage[ID])}
}

// Get returns the cached lineage for id, if present.
func (c *LineageCache[ID]) Get(id ID) (Lineage[ID], bool) {
	c.mu.RLock()
	lin, ok := c.m[id]
	c.mu.RUnlock()
	return lin, ok
}

// Put stores the lineage for id.
func (c *LineageCache[ID]) Put(id ID, lin Lineage[ID]) {
	c.mu.Lock()
	c.m[id] = lin
	c.mu.Unlock()
}

// Len returns the number of memoized lineages.
func (c *LineageCache[ID]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

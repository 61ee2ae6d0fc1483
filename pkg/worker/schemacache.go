package worker

import "sync"

// SchemaCache holds metadata keyed by identifier, typically table schemas
// looked up by describe-style tools. Mutating tool handlers call
// Invalidate before they return, so a read issued after a mutation
// acknowledges never observes a stale entry.
type SchemaCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewSchemaCache creates an empty cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{entries: make(map[string]any)}
}

// Get returns the cached value for id.
func (c *SchemaCache) Get(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[id]
	return v, ok
}

// Put stores a value for id.
func (c *SchemaCache) Put(id string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = value
}

// Invalidate drops the entry for id. Dropping an absent entry is a no-op.
func (c *SchemaCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of cached entries.
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package matching

import "sync"

// Cache memoizes lookups by normalized title. It has no eviction; library
// sizes are in the hundreds.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Result)}
}

// Get returns a copy of the cached result for key.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	return res.clone(), true
}

// Put stores res under key.
func (c *Cache) Put(key string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = res.clone()
}

// Delete evicts key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear evicts everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of cached titles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Package cache provides a bounded least-recently-used cache.
package cache

import "sync"

// Cache is a key/value cache that may drop entries at any time.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Put(key string, value V)
	Len() int
	Clear()
}

// LRU keeps up to capacity entries and evicts the least recently accessed
// one on overflow. Access order comes from a logical clock, so eviction is
// deterministic. Safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]V
	accessed map[string]uint64
	clock    uint64
	onEvict  func(key string)
}

// DefaultCapacity is the profile cache size used by the analyzer.
const DefaultCapacity = 50

// NewLRU creates an LRU holding at most capacity entries. A non-positive
// capacity uses DefaultCapacity.
func NewLRU[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[V]{
		capacity: capacity,
		entries:  make(map[string]V, capacity),
		accessed: make(map[string]uint64, capacity),
	}
}

// OnEvict registers a callback invoked with each evicted key.
func (c *LRU[V]) OnEvict(fn func(key string)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the cached value and refreshes its access time.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if ok {
		c.touch(key)
	}
	return v, ok
}

// Put stores value, evicting the least recently used entry when full.
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = value
	c.touch(key)
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V, c.capacity)
	c.accessed = make(map[string]uint64, c.capacity)
}

func (c *LRU[V]) touch(key string) {
	c.clock++
	c.accessed[key] = c.clock
}

func (c *LRU[V]) evictOldest() {
	var (
		oldest    string
		oldestAt  uint64
		hasOldest bool
	)
	for k, at := range c.accessed {
		if !hasOldest || at < oldestAt {
			oldest, oldestAt, hasOldest = k, at, true
		}
	}
	if !hasOldest {
		return
	}
	delete(c.entries, oldest)
	delete(c.accessed, oldest)
	if c.onEvict != nil {
		c.onEvict(oldest)
	}
}

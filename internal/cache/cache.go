// Package cache provides a TTL response cache for idempotent venue reads.
// Request builders mark cacheable operations with a key and TTL; the
// exchange consults the cache before the transport and stores the parsed
// result after it. Safe for concurrent use.
package cache

import (
	"sync"
	"time"
)

// Cache is a mutex-guarded in-memory store with per-entry expiry.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*item
	ttl   time.Duration
}

type item struct {
	value     any
	expiresAt time.Time
}

// New creates a Cache. Entries stored without an explicit TTL expire after
// the given default.
func New(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]*item),
		ttl:   ttl,
	}
}

// Get returns the value stored under key, or nil when the key is absent or
// its entry has expired.
func (c *Cache) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		return nil
	}
	return it.value
}

// Set stores value under key. A zero TTL uses the cache default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &item{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes the entry under key, if any.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item)
}

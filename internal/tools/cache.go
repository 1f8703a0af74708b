package tools

import (
	"sync"
	"time"

	"toolflow/internal/value"
)

type cacheItem struct {
	value      value.Value
	expiration time.Time
}

// Cache is a minimal in-memory TTL cache safe for concurrent access.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheItem), now: time.Now}
}

// Set stores v under key for ttl.
func (c *Cache) Set(key string, v value.Value, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{value: v, expiration: c.now().Add(ttl)}
}

// Get returns a non-expired value for key.
func (c *Cache) Get(key string) (value.Value, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return value.Value{}, false
	}
	if c.now().After(it.expiration) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return value.Value{}, false
	}
	return it.value, true
}

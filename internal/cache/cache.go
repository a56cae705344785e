// Package cache provides a small in-process map with per-entry TTL.
// Cleanup is lazy: expired entries are treated as misses on read and are
// overwritten on the next Set for the same key.
package cache

import (
	"sync"
	"time"
)

// now is an indirection to allow test stubbing.
var now = time.Now

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

// TTLCache is a mutex-guarded map with per-entry TTL.
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
}

// New constructs an empty TTLCache.
func New[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{items: make(map[K]entry[V])}
}

// Get returns the value and whether it is present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && now().After(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. A ttl <= 0 means the entry does not expire.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

// Delete removes a key if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts non-expired entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, e := range c.items {
		if e.expiresAt.IsZero() || now().Before(e.expiresAt) {
			count++
		}
	}
	return count
}

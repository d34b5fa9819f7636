// Package cache provides a generic in-memory cache with per-entry TTLs.
package cache

import (
	"sync"
	"time"
)

// Cache stores values with a TTL under comparable keys
type Cache[K comparable, V any] interface {
	// Set stores a value in the cache with the specified TTL
	Set(key K, value V, ttl time.Duration)
	// Get retrieves a value and reports whether it was found and unexpired
	Get(key K) (V, bool)
	// Delete removes a value from the cache
	Delete(key K)
	// Clear removes all values from the cache
	Clear()
}

// entry represents a cache entry with its expiration time
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type memoryCache[K comparable, V any] struct {
	items map[K]entry[V]
	mu    sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache[K comparable, V any]() Cache[K, V] {
	return &memoryCache[K, V]{
		items: make(map[K]entry[V]),
	}
}

func (c *memoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}
}

func (c *memoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found {
		var zero V
		return zero, false
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

func (c *memoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *memoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}

// WithTTL returns a wrapper that applies a fixed TTL to all Set operations
func WithTTL[K comparable, V any](cache Cache[K, V], ttl time.Duration) Cache[K, V] {
	return &ttlWrapper[K, V]{cache: cache, ttl: ttl}
}

type ttlWrapper[K comparable, V any] struct {
	cache Cache[K, V]
	ttl   time.Duration
}

func (w *ttlWrapper[K, V]) Set(key K, value V, _ time.Duration) {
	w.cache.Set(key, value, w.ttl)
}

func (w *ttlWrapper[K, V]) Get(key K) (V, bool) { return w.cache.Get(key) }
func (w *ttlWrapper[K, V]) Delete(key K)        { w.cache.Delete(key) }
func (w *ttlWrapper[K, V]) Clear()              { w.cache.Clear() }

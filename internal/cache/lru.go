// internal/cache/lru.go
//
// Typed least-recently-used cache.
//
// Wraps github.com/hashicorp/golang-lru so callers get compile-time key and
// value types instead of interface{} assertions at every Get.  The
// underlying cache is already goroutine-safe.  Used by the preferences
// store to keep hot viewers' widget sets out of MySQL.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRU is a fixed-capacity cache.  Zero value is unusable; call New.
type LRU[K comparable, V any] struct {
	c *lru.Cache
}

// New returns an LRU with the given capacity.  capacity must be ≥1.
func New[K comparable, V any](capacity int) (*LRU[K, V], error) {
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{c: c}, nil
}

// Get retrieves a value and marks it most recently used.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	var zero V
	v, ok := l.c.Get(key)
	if !ok {
		return zero, false
	}
	return v.(V), true
}

// Add inserts or updates a value, evicting the oldest entry when full.
func (l *LRU[K, V]) Add(key K, val V) { l.c.Add(key, val) }

// Remove drops key if present.
func (l *LRU[K, V]) Remove(key K) { l.c.Remove(key) }

// Len reports current size.
func (l *LRU[K, V]) Len() int { return l.c.Len() }

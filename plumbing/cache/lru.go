package cache

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/gitcas/gitcas/plumbing"
)

// KeyedLRU is a thread-safe, fixed-entry-count LRU keyed by an arbitrary
// comparable key. It wraps github.com/golang/groupcache/lru.Cache, which is
// not itself safe for concurrent use, hence the mutex here.
//
// This backs the one hit-count cache used elsewhere in this module: the
// "objects" cache of intermediate delta bases, keyed by OffsetKey. The
// module has no cache of open pack handles, open index handles or the pack
// reverse-index. The default capacity is 5 entries, overridable.
type KeyedLRU struct {
	mu  sync.Mutex
	lru *lru.Cache
}

// NewKeyedLRU returns a KeyedLRU bounded at maxEntries. A maxEntries of 0
// means unbounded, matching groupcache's own convention.
func NewKeyedLRU(maxEntries int) *KeyedLRU {
	return &KeyedLRU{lru: lru.New(maxEntries)}
}

// NewKeyedLRUDefault returns a KeyedLRU bounded at DefaultLRUSize.
func NewKeyedLRUDefault() *KeyedLRU {
	return NewKeyedLRU(DefaultLRUSize)
}

// Add inserts or refreshes key -> value, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *KeyedLRU) Add(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// Get returns the cached value for key, if present, promoting it to
// most-recently-used. Lookups are best-effort: a miss is not an error, it
// simply means the caller should fall through to the authoritative source.
func (c *KeyedLRU) Get(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Remove drops key from the cache, if present.
func (c *KeyedLRU) Remove(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of entries currently cached.
func (c *KeyedLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every cached entry.
func (c *KeyedLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

// OffsetKey is the composite key used by the objects cache: a
// reconstructed object is identified by which pack it lives in and its
// byte offset within that pack.
type OffsetKey struct {
	Pack   plumbing.Hash
	Offset int64
}

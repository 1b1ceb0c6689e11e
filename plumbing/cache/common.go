// Package cache implements the bounded, process-local caches interposed
// between the top-level façade and the loose/packed backends: a
// size-weighted LRU for fully decoded objects, and a hit-count LRU for
// intermediate delta bases. There is no cache of open pack handles, open
// index handles or the pack reverse-index.
package cache

import "github.com/gitcas/gitcas/plumbing"

// File-size constants used to express cache capacities.
const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultMaxSize is the default capacity, in bytes, of a size-weighted
// object cache.
const DefaultMaxSize = 96 * MiByte

// DefaultLRUSize is the default entry count of a hit-count LRU (KeyedLRU),
// such as the objects cache. Overridable per instance.
const DefaultLRUSize = 5

// FileSize is a byte count, used both for cache capacities and for
// individual entry weights.
type FileSize int64

// Object is a size-weighted cache of fully decoded objects, keyed by
// content hash. Implementations evict least-recently-used entries once
// their total weight would exceed MaxSize.
type Object interface {
	Put(o plumbing.EncodedObject)
	Get(k plumbing.Hash) (plumbing.EncodedObject, bool)
	Clear()
}

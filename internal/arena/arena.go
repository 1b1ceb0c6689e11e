// Package arena implements the buffer pools a pack decoder borrows from
// while reconstructing delta chains: one bounded pool per pack, sized to
// the largest inflated object seen in that pack, plus a single
// grow-on-demand fallback for packs the caller hasn't registered yet.
package arena

import (
	"sync"

	"github.com/gitcas/gitcas/plumbing"
)

// DefaultPoolSize is the number of released buffers a pack's pool keeps
// for reuse. Get never blocks: with no free buffer it allocates a new one,
// and a release made while the pool already holds this many is dropped.
const DefaultPoolSize = 4

// Handle represents a borrowed buffer. Release must be called exactly
// once to return it to its pool.
type Handle struct {
	buf     []byte
	release func([]byte)
}

// Bytes returns the borrowed buffer, at least Length bytes long.
func (h *Handle) Bytes() []byte { return h.buf }

// Wrap returns a Handle over buf whose Release is a no-op, for callers that
// need the Handle shape without an arena behind them (e.g. no arena
// configured).
func Wrap(buf []byte) *Handle {
	return &Handle{buf: buf}
}

// Release returns the buffer to its pool.
func (h *Handle) Release() {
	if h.release != nil {
		h.release(h.buf)
		h.release = nil
	}
}

// pool is a bounded, size-growing buffer pool for a single pack. A
// buffer's capacity never shrinks: once grown to satisfy a large object it
// stays that size, so later, smaller requests don't pay a new allocation.
type pool struct {
	mu      sync.Mutex
	free    [][]byte
	maxSize int
	cap     int
}

func newPool(cap int) *pool {
	return &pool{cap: cap}
}

func (p *pool) get(length int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if length > p.maxSize {
		p.maxSize = length
	}

	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		if cap(buf) < length {
			buf = make([]byte, length)
		}
		return buf[:length]
	}

	return make([]byte, length, max(length, p.maxSize))
}

func (p *pool) put(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) >= p.cap {
		return
	}
	p.free = append(p.free, buf)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Arena hands out buffers keyed by which pack they serve. Packs not yet
// registered (e.g. mid-ingestion, before an index exists) fall back to the
// "Unrecorded" path: a single mutex and a single grow-on-demand buffer
// shared by every caller until the pack is known.
type Arena struct {
	mu    sync.Mutex
	pools map[plumbing.Hash]*pool

	unrecordedMu  sync.Mutex
	unrecordedBuf []byte
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{pools: make(map[plumbing.Hash]*pool)}
}

// Get borrows a buffer of at least length bytes for the named pack.
func (a *Arena) Get(pack plumbing.Hash, length int) *Handle {
	p := a.poolFor(pack)
	buf := p.get(length)
	return &Handle{buf: buf, release: p.put}
}

// GetUnrecorded borrows a buffer for a pack this arena hasn't registered a
// pool for yet, serializing every caller behind a single mutex until
// ingestion finishes and a proper pool can be created.
func (a *Arena) GetUnrecorded(length int) *Handle {
	a.unrecordedMu.Lock()
	if cap(a.unrecordedBuf) < length {
		a.unrecordedBuf = make([]byte, length)
	}
	buf := a.unrecordedBuf[:length]

	return &Handle{
		buf: buf,
		release: func([]byte) {
			a.unrecordedMu.Unlock()
		},
	}
}

func (a *Arena) poolFor(pack plumbing.Hash) *pool {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.pools[pack]
	if !ok {
		p = newPool(DefaultPoolSize)
		a.pools[pack] = p
	}
	return p
}

// Forget drops a pack's pool, e.g. when the pack is removed by a repack.
func (a *Arena) Forget(pack plumbing.Hash) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pools, pack)
}

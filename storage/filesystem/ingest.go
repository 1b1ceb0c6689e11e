package filesystem

import (
	"errors"
	"io"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

// DefaultStallLimit is the number of consecutive zero-byte, no-error reads
// an ingestion tolerates from an upstream stream before giving up.
const DefaultStallLimit = 50

// ErrStalled is returned by Ingest.From when the upstream stream made no
// progress for StallLimit consecutive reads.
var ErrStalled = errors.New("upstream stream stalled")

// Ingest streams a raw pack to a temp file while a first-pass parse builds
// its index concurrently (dotgit.PackWriter), then publishes index and pack
// atomically and registers the result with the pack engine. On any failure
// the temp file is discarded and nothing is published.
type Ingest struct {
	dot   *dotgit.DotGit
	packs *Packs

	// StallLimit overrides DefaultStallLimit when non-zero.
	StallLimit int
}

// NewIngest returns an Ingest writing into dot and registering completed
// packs with packs.
func NewIngest(dot *dotgit.DotGit, packs *Packs) *Ingest {
	return &Ingest{dot: dot, packs: packs}
}

func (i *Ingest) stallLimit() int {
	if i.StallLimit > 0 {
		return i.StallLimit
	}
	return DefaultStallLimit
}

// From ingests a full pack stream read from r, returning its digest and
// object count. An empty stream is accepted as a no-op: it returns the zero
// hash, a count of zero, and no error.
func (i *Ingest) From(r io.Reader) (plumbing.Hash, int, error) {
	w, err := i.dot.NewObjectPack()
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}

	var (
		digest plumbing.Hash
		count  int
	)
	w.Notify = func(h plumbing.Hash, idx *idxfile.MemoryIndex) {
		digest = h
		if c, err := idx.Count(); err == nil {
			count = int(c)
		}
		_ = i.packs.Register(h, idx)
	}

	guarded := &stallGuard{r: r, limit: i.stallLimit()}
	if _, err := io.Copy(w, guarded); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, 0, err
	}

	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, 0, err
	}

	return digest, count, nil
}

// stallGuard wraps an io.Reader and fails with ErrStalled once it has seen
// limit consecutive reads that returned no bytes and no error — the one
// shape of non-progress an io.Reader is allowed to produce indefinitely.
type stallGuard struct {
	r     io.Reader
	limit int
	zeros int
}

func (s *stallGuard) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if n == 0 && err == nil {
		s.zeros++
		if s.zeros >= s.limit {
			return 0, ErrStalled
		}
		return 0, nil
	}
	s.zeros = 0
	return n, err
}

package packfile

import (
	"errors"
	"io"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
)

// ResolveDeltaHashes fills in the Hash field of every delta entry in info,
// which the first pass leaves zero (computing it would otherwise require
// reconstructing the base chain and materializing object bodies during the
// streaming first pass). It reconstructs each delta entry through a Decoder built
// over ra and a growing hash->offset index seeded from the non-delta
// entries the first pass already hashed, so an ofs-delta or an
// intra-pack ref-delta resolves purely from bytes already on disk.
//
// Entries are retried in passes until no entry resolves, so a ref-delta
// whose base is itself an unresolved delta earlier or later in iteration
// order still succeeds once its base is known. A pass that resolves
// nothing leaves entries pending; those are reported as ErrDeltaCycle —
// either a genuine cycle, or a base outside this pack (a thin pack),
// which this first-pass index build does not fix up.
func ResolveDeltaHashes(ra io.ReaderAt, info *Info) error {
	known := &growableIndex{byHash: make(map[plumbing.Hash]int64, len(info.Entries))}

	var pending []*EntryInfo
	for _, e := range info.Entries {
		if e.IsDelta() {
			pending = append(pending, e)
		} else {
			known.byHash[e.Hash] = e.Offset
		}
	}
	if len(pending) == 0 {
		return nil
	}

	dec := NewDecoder(plumbing.ZeroHash, ra, known, nil, nil, nil, nil)

	for len(pending) > 0 {
		var next []*EntryInfo
		progressed := false

		for _, e := range pending {
			t, content, err := dec.DecodeByOffset(e.Offset)
			if err != nil {
				var missing *MissingBaseError
				if errors.As(err, &missing) {
					next = append(next, e)
					continue
				}
				return err
			}

			h := plumbing.NewHasher(t, int64(len(content)))
			h.Write(content)
			e.Hash = h.Sum()
			known.byHash[e.Hash] = e.Offset
			progressed = true
		}

		if !progressed {
			return ErrDeltaCycle
		}
		pending = next
	}

	return nil
}

// growableIndex is the minimal idxfile.Index a Decoder needs to resolve
// ref-delta bases purely by offset lookups against a map built as entries
// resolve; every other Index method is unused by Decoder.decode and
// Decoder.resolveBase, so they report not-found rather than implementing
// the full on-disk index format.
type growableIndex struct {
	byHash map[plumbing.Hash]int64
}

var _ idxfile.Index = (*growableIndex)(nil)

func (g *growableIndex) Contains(h plumbing.Hash) (bool, error) {
	_, ok := g.byHash[h]
	return ok, nil
}

func (g *growableIndex) FindOffset(h plumbing.Hash) (int64, error) {
	o, ok := g.byHash[h]
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}
	return o, nil
}

func (g *growableIndex) FindCRC32(h plumbing.Hash) (uint32, error) {
	return 0, plumbing.ErrObjectNotFound
}

func (g *growableIndex) FindHash(offset int64) (plumbing.Hash, error) {
	return plumbing.ZeroHash, plumbing.ErrObjectNotFound
}

func (g *growableIndex) Count() (int64, error) {
	return int64(len(g.byHash)), nil
}

func (g *growableIndex) Entries() (idxfile.EntryIter, error) {
	return nil, plumbing.ErrObjectNotFound
}

func (g *growableIndex) EntriesByOffset() (idxfile.EntryIter, error) {
	return nil, plumbing.ErrObjectNotFound
}

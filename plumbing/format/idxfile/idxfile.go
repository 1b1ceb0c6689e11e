package idxfile

import (
	"bytes"
	"io"
	"sort"

	"github.com/gitcas/gitcas/plumbing"
)

// Entry describes one object's position inside a pack: its digest, the
// byte offset of its entry header within the pack, and the CRC32 of the
// entry's compressed bytes (used to validate a pack without reinflating
// every object).
type Entry struct {
	Hash   plumbing.Hash
	Offset uint64
	CRC32  uint32
}

// EntryIter is a closable iterator over index entries.
type EntryIter interface {
	Next() (*Entry, error)
	Close() error
}

// Index is the read surface a pack engine needs over an idx file: resolve a
// digest to its pack offset or CRC32, resolve an offset back to its digest,
// and enumerate every entry.
type Index interface {
	Contains(h plumbing.Hash) (bool, error)
	FindOffset(h plumbing.Hash) (int64, error)
	FindCRC32(h plumbing.Hash) (uint32, error)
	FindHash(offset int64) (plumbing.Hash, error)
	Count() (int64, error)
	Entries() (EntryIter, error)
	EntriesByOffset() (EntryIter, error)
}

// MemoryIndex is the whole-file-resident Index implementation: every
// section of the .idx format is held as a flat, sorted-by-hash byte slice,
// and lookups binary search directly over it, built from plain slices
// rather than per-fanout-bucket chunks since nothing about this store's
// scale calls for that extra bookkeeping.
type MemoryIndex struct {
	Version uint32
	Fanout  [256]uint32

	// Names, CRC32 and Offset32 each hold Count() consecutive
	// fixed-width records, all three records for a given position
	// describing the same object. Names is sorted.
	Names    []byte
	CRC32    []byte
	Offset32 []byte
	Offset64 []byte

	PackfileChecksum plumbing.Hash
	IdxChecksum      plumbing.Hash

	offsetHash map[int64]plumbing.Hash
}

var _ Index = (*MemoryIndex)(nil)

// Count returns the number of objects indexed.
func (idx *MemoryIndex) Count() (int64, error) {
	return int64(idx.Fanout[255]), nil
}

// Contains reports whether h is present in the index.
func (idx *MemoryIndex) Contains(h plumbing.Hash) (bool, error) {
	_, err := idx.FindOffset(h)
	if err == plumbing.ErrObjectNotFound {
		return false, nil
	}
	return err == nil, err
}

func (idx *MemoryIndex) fanoutRange(h plumbing.Hash) (lo, hi int) {
	first := int(h.Bytes()[0])
	if first > 0 {
		lo = int(idx.Fanout[first-1])
	}
	hi = int(idx.Fanout[first])
	return
}

func (idx *MemoryIndex) nameAt(pos int) []byte {
	return idx.Names[pos*plumbing.HashSize : (pos+1)*plumbing.HashSize]
}

func (idx *MemoryIndex) search(h plumbing.Hash) (int, bool) {
	lo, hi := idx.fanoutRange(h)
	want := h.Bytes()

	pos := lo + sort.Search(hi-lo, func(i int) bool {
		return bytes.Compare(idx.nameAt(lo+i), want) >= 0
	})

	if pos < hi && bytes.Equal(idx.nameAt(pos), want) {
		return pos, true
	}
	return 0, false
}

// FindOffset returns the pack offset of h.
func (idx *MemoryIndex) FindOffset(h plumbing.Hash) (int64, error) {
	pos, ok := idx.search(h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}
	return int64(idx.offsetAt(pos)), nil
}

// FindCRC32 returns the CRC32 of h's compressed entry bytes.
func (idx *MemoryIndex) FindCRC32(h plumbing.Hash) (uint32, error) {
	pos, ok := idx.search(h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}
	return crc32At(idx.CRC32, pos), nil
}

// FindHash reverses FindOffset, returning the digest stored at offset. The
// first call builds and memoizes a full offset->hash map, an O(n)
// one-time cost; no reverse-index cache sits in front of it.
func (idx *MemoryIndex) FindHash(offset int64) (plumbing.Hash, error) {
	if idx.offsetHash == nil {
		idx.offsetHash = make(map[int64]plumbing.Hash, idx.Fanout[255])
		for i := 0; i < int(idx.Fanout[255]); i++ {
			var h plumbing.Hash
			copy(h[:], idx.nameAt(i))
			idx.offsetHash[int64(idx.offsetAt(i))] = h
		}
	}

	h, ok := idx.offsetHash[offset]
	if !ok {
		return plumbing.ZeroHash, plumbing.ErrObjectNotFound
	}
	return h, nil
}

func (idx *MemoryIndex) offsetAt(pos int) uint64 {
	off32 := be32(idx.Offset32, pos)
	if uint32(off32)&is64BitsMask == 0 {
		return uint64(off32)
	}
	hi := int(uint32(off32) &^ is64BitsMask)
	return be64(idx.Offset64, hi)
}

func be32(b []byte, pos int) uint32 {
	o := b[pos*4 : pos*4+4]
	return uint32(o[0])<<24 | uint32(o[1])<<16 | uint32(o[2])<<8 | uint32(o[3])
}

func be64(b []byte, pos int) uint64 {
	o := b[pos*8 : pos*8+8]
	var v uint64
	for _, c := range o {
		v = v<<8 | uint64(c)
	}
	return v
}

func crc32At(b []byte, pos int) uint32 {
	return be32(b, pos)
}

// Entries returns an iterator over every object, in digest order.
func (idx *MemoryIndex) Entries() (EntryIter, error) {
	return &memoryEntryIter{idx: idx}, nil
}

// EntriesByOffset returns an iterator over every object, ordered by
// ascending pack offset, the order a sequential pack scan produces.
func (idx *MemoryIndex) EntriesByOffset() (EntryIter, error) {
	count := int(idx.Fanout[255])
	entries := make([]*Entry, count)
	for i := 0; i < count; i++ {
		entries[i] = idx.entryAt(i)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	return &sliceEntryIter{entries: entries}, nil
}

func (idx *MemoryIndex) entryAt(pos int) *Entry {
	var h plumbing.Hash
	copy(h[:], idx.nameAt(pos))
	return &Entry{Hash: h, Offset: idx.offsetAt(pos), CRC32: crc32At(idx.CRC32, pos)}
}

type memoryEntryIter struct {
	idx *MemoryIndex
	pos int
}

func (it *memoryEntryIter) Next() (*Entry, error) {
	if it.pos >= int(it.idx.Fanout[255]) {
		return nil, io.EOF
	}
	e := it.idx.entryAt(it.pos)
	it.pos++
	return e, nil
}

func (it *memoryEntryIter) Close() error { return nil }

type sliceEntryIter struct {
	entries []*Entry
	pos     int
}

func (it *sliceEntryIter) Next() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, io.EOF
	}
	e := it.entries[it.pos]
	it.pos++
	return e, nil
}

func (it *sliceEntryIter) Close() error { return nil }

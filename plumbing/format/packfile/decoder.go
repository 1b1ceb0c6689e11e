package packfile

import (
	"bufio"
	"compress/zlib"
	"io"

	"github.com/gitcas/gitcas/internal/arena"
	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/cache"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
)

// maxDeltaDepth bounds recursive base reconstruction. A well-formed pack
// never nests deltas anywhere near this deep; the cap exists to turn a
// malformed or cyclic chain into ErrDeltaCycle instead of unbounded
// recursion.
const maxDeltaDepth = 256

// LooseResolver resolves a ref-delta base against the loose object store,
// the second backend the decoder tries after this pack's own index.
type LooseResolver func(h plumbing.Hash) (plumbing.ObjectType, []byte, bool, error)

// CrossPackResolver resolves a ref-delta base against one of the engine's
// other known packs, the last backend the decoder tries.
type CrossPackResolver func(h plumbing.Hash) (plumbing.ObjectType, []byte, bool, error)

// Decoder reconstructs individual objects out of a pack, given random
// access to its bytes and an index for offset/hash lookups. It implements
// the reconstruction algorithm: inflate non-delta entries directly; for
// ofs-delta, recurse on the base at offset-Δ; for ref-delta, resolve the
// base by digest, trying this pack's index first, then the loose store,
// then the engine's other packs.
type Decoder struct {
	ra    io.ReaderAt
	index idxfile.Index
	pack  plumbing.Hash

	arena *arena.Arena
	cache *cache.KeyedLRU

	readLoose     LooseResolver
	readCrossPack CrossPackResolver
}

// NewDecoder returns a Decoder for the pack identified by pack. cache and
// arenaPool may be shared across every pack an engine holds open. readLoose
// and readCrossPack may be nil if no such fallback is available, in which
// case an unresolved ref-delta base yields MissingBaseError.
func NewDecoder(
	pack plumbing.Hash,
	ra io.ReaderAt,
	index idxfile.Index,
	arenaPool *arena.Arena,
	c *cache.KeyedLRU,
	readLoose LooseResolver,
	readCrossPack CrossPackResolver,
) *Decoder {
	return &Decoder{
		ra:            ra,
		index:         index,
		pack:          pack,
		arena:         arenaPool,
		cache:         c,
		readLoose:     readLoose,
		readCrossPack: readCrossPack,
	}
}

// DecodeByOffset reconstructs the object stored at pack offset o.
func (d *Decoder) DecodeByOffset(o int64) (plumbing.ObjectType, []byte, error) {
	return d.decode(o, 0, make(map[int64]bool))
}

// DecodeByHash reconstructs the object identified by h, looked up through
// this pack's own index.
func (d *Decoder) DecodeByHash(h plumbing.Hash) (plumbing.ObjectType, []byte, error) {
	o, err := d.index.FindOffset(h)
	if err != nil {
		return plumbing.InvalidObject, nil, &MissingBaseError{Hash: h}
	}
	return d.DecodeByOffset(o)
}

func (d *Decoder) decode(o int64, depth int, visiting map[int64]bool) (plumbing.ObjectType, []byte, error) {
	if depth > maxDeltaDepth || visiting[o] {
		return plumbing.InvalidObject, nil, ErrDeltaCycle
	}
	visiting[o] = true
	defer delete(visiting, o)

	if t, content, ok := d.cacheGet(o); ok {
		return t, content, nil
	}

	h, raw, err := d.readEntry(o)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	var (
		t       plumbing.ObjectType
		content []byte
	)

	switch h.Type {
	case plumbing.OFSDeltaObject:
		baseType, baseContent, err := d.decode(h.OffsetReference, depth+1, visiting)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		content, err = PatchDelta(nil, baseContent, raw)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		t = baseType

	case plumbing.REFDeltaObject:
		baseType, baseContent, err := d.resolveBase(h.Reference, depth, visiting)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		content, err = PatchDelta(nil, baseContent, raw)
		if err != nil {
			return plumbing.InvalidObject, nil, err
		}
		t = baseType

	default:
		t, content = h.Type, raw
	}

	d.cachePut(o, t, content)
	return t, content, nil
}

// resolveBase finds a ref-delta's base by digest: first in this pack (via
// its own index, by recursing into decode at the found offset so its cache
// and cycle-tracking apply), then in the loose store, then in the engine's
// other packs. The first backend to have it wins.
func (d *Decoder) resolveBase(h plumbing.Hash, depth int, visiting map[int64]bool) (plumbing.ObjectType, []byte, error) {
	if o, err := d.index.FindOffset(h); err == nil {
		return d.decode(o, depth+1, visiting)
	}

	if d.readLoose != nil {
		if t, content, ok, err := d.readLoose(h); err != nil {
			return plumbing.InvalidObject, nil, err
		} else if ok {
			return t, content, nil
		}
	}

	if d.readCrossPack != nil {
		if t, content, ok, err := d.readCrossPack(h); err != nil {
			return plumbing.InvalidObject, nil, err
		} else if ok {
			return t, content, nil
		}
	}

	return plumbing.InvalidObject, nil, &MissingBaseError{Hash: h}
}

// entryHeader is the header of one pack entry: its kind, its declared
// inflated size (the object's size for non-delta kinds, the delta stream's
// size for delta kinds), and its base reference if it is a delta.
type entryHeader struct {
	Type            plumbing.ObjectType
	Size            int64
	OffsetReference int64
	Reference       plumbing.Hash
}

// readEntry parses the header at pack offset o and inflates its body. The
// inflate buffer is borrowed from the arena, sized to the entry's declared
// length, and released once its bytes have been copied out, so a long
// reconstruction chain doesn't grow the pack's pool beyond its bound.
func (d *Decoder) readEntry(o int64) (entryHeader, []byte, error) {
	sr := io.NewSectionReader(d.ra, o, 1<<62)
	br := bufio.NewReader(sr)

	first, err := br.ReadByte()
	if err != nil {
		return entryHeader{}, nil, ErrPackMalformed
	}

	h := entryHeader{Type: plumbing.ObjectType((first & maskType) >> typeShift)}

	size := int64(first & maskFirstLength)
	shift := firstLengthBits
	c := first
	for c&maskContinue != 0 {
		c, err = br.ReadByte()
		if err != nil {
			return entryHeader{}, nil, ErrPackMalformed
		}
		size |= int64(c&maskLength) << shift
		shift += lengthBits
	}
	h.Size = size

	switch h.Type {
	case plumbing.OFSDeltaObject:
		neg, err := gbinary.ReadVariableWidthInt(br)
		if err != nil {
			return entryHeader{}, nil, ErrPackMalformed
		}
		h.OffsetReference = o - neg

	case plumbing.REFDeltaObject:
		var buf [plumbing.HashSize]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return entryHeader{}, nil, ErrPackMalformed
		}
		copy(h.Reference[:], buf[:])

	default:
		if !h.Type.Valid() {
			return entryHeader{}, nil, ErrPackMalformed
		}
	}

	zr, err := zlib.NewReader(br)
	if err != nil {
		return entryHeader{}, nil, ErrInflate
	}
	defer zr.Close()

	handle := d.getBuffer(h.Size)
	defer handle.Release()

	buf := handle.Bytes()
	if _, err := io.ReadFull(zr, buf); err != nil {
		return entryHeader{}, nil, ErrInflate
	}

	out := make([]byte, len(buf))
	copy(out, buf)
	return h, out, nil
}

func (d *Decoder) getBuffer(size int64) *arena.Handle {
	if d.arena == nil {
		return arena.Wrap(make([]byte, size))
	}
	return d.arena.Get(d.pack, int(size))
}

func (d *Decoder) cacheGet(o int64) (plumbing.ObjectType, []byte, bool) {
	if d.cache == nil {
		return plumbing.InvalidObject, nil, false
	}
	v, ok := d.cache.Get(cache.OffsetKey{Pack: d.pack, Offset: o})
	if !ok {
		return plumbing.InvalidObject, nil, false
	}
	e := v.(cachedObject)
	return e.t, e.content, true
}

func (d *Decoder) cachePut(o int64, t plumbing.ObjectType, content []byte) {
	if d.cache == nil {
		return
	}
	d.cache.Add(cache.OffsetKey{Pack: d.pack, Offset: o}, cachedObject{t: t, content: content})
}

type cachedObject struct {
	t       plumbing.ObjectType
	content []byte
}

package idxfile

import (
	"bytes"
	"sort"

	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
)

type indexedObject struct {
	hash   plumbing.Hash
	offset uint64
	crc    uint32
}

type indexedObjects []indexedObject

func (o indexedObjects) Len() int      { return len(o) }
func (o indexedObjects) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o indexedObjects) Less(i, j int) bool {
	return bytes.Compare(o[i].hash[:], o[j].hash[:]) < 0
}

// Writer accumulates (hash, offset, crc) triples discovered while scanning
// a pack and assembles them into a MemoryIndex. It implements the packfile
// Observer interface so it can be driven directly by the first-pass parser
// during ingestion.
type Writer struct {
	checksum plumbing.Hash
	objects  indexedObjects
}

// Add records one indexed object. dotgit's PackWriter calls it directly
// for delta entries, whose digests are only known after the parse.
func (w *Writer) Add(h plumbing.Hash, offset uint64, crc uint32) {
	w.objects = append(w.objects, indexedObject{h, offset, crc})
}

// OnHeader implements packfile.Observer.
func (w *Writer) OnHeader(count uint32) error {
	w.objects = make(indexedObjects, 0, count)
	return nil
}

// OnInflatedObjectHeader implements packfile.Observer.
func (w *Writer) OnInflatedObjectHeader(t plumbing.ObjectType, size int64, pos int64) error {
	return nil
}

// OnInflatedObjectContent implements packfile.Observer.
func (w *Writer) OnInflatedObjectContent(h plumbing.Hash, pos int64, crc uint32, content []byte) error {
	w.Add(h, uint64(pos), crc)
	return nil
}

// OnFooter implements packfile.Observer.
func (w *Writer) OnFooter(h plumbing.Hash) error {
	w.checksum = h
	return nil
}

// CreateIndex assembles every recorded object into a sorted MemoryIndex.
// The idx checksum is left zero; callers that need it populated should
// round-trip the result through an Encoder.
func (w *Writer) CreateIndex() (*MemoryIndex, error) {
	sort.Sort(w.objects)

	idx := &MemoryIndex{Version: VersionSupported, PackfileChecksum: w.checksum}

	count := len(w.objects)
	idx.Names = make([]byte, 0, count*plumbing.HashSize)
	idx.CRC32 = make([]byte, 0, count*crcSize)
	idx.Offset32 = make([]byte, 0, count*offset32Size)

	var large []uint64

	buf := new(bytes.Buffer)
	for _, o := range w.objects {
		idx.Names = append(idx.Names, o.hash[:]...)

		buf.Reset()
		gbinary.WriteUint32(buf, o.crc)
		idx.CRC32 = append(idx.CRC32, buf.Bytes()...)

		if o.offset > 0x7fffffff {
			buf.Reset()
			gbinary.WriteUint32(buf, is64BitsMask|uint32(len(large)))
			idx.Offset32 = append(idx.Offset32, buf.Bytes()...)
			large = append(large, o.offset)
		} else {
			buf.Reset()
			gbinary.WriteUint32(buf, uint32(o.offset))
			idx.Offset32 = append(idx.Offset32, buf.Bytes()...)
		}
	}

	for _, off := range large {
		buf.Reset()
		gbinary.WriteUint64(buf, off)
		idx.Offset64 = append(idx.Offset64, buf.Bytes()...)
	}

	last := -1
	for i, o := range w.objects {
		fan := int(o.hash[0])
		for j := last + 1; j < fan; j++ {
			idx.Fanout[j] = uint32(i)
		}
		idx.Fanout[fan] = uint32(i + 1)
		last = fan
	}
	for j := last + 1; j < 256; j++ {
		idx.Fanout[j] = uint32(count)
	}

	return idx, nil
}

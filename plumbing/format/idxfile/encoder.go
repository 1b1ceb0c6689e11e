package idxfile

import (
	"io"

	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
)

// Encoder writes a MemoryIndex in the v2 wire format, hashing everything it
// writes so Encode can report the idx file's own trailing checksum.
type Encoder struct {
	raw io.Writer
	w   io.Writer
	h   plumbing.Hasher
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	h := plumbing.Hasher{Digest: plumbing.NewDigest()}
	return &Encoder{raw: w, w: io.MultiWriter(w, h), h: h}
}

// Encode writes idx and returns the number of bytes written.
func (e *Encoder) Encode(idx *MemoryIndex) (int, error) {
	size := 0
	for _, f := range []func(*MemoryIndex) (int, error){
		e.encodeHeader,
		e.encodeFanout,
		e.encodeNames,
		e.encodeCRC32,
		e.encodeOffsets,
		e.encodeChecksums,
	} {
		n, err := f(idx)
		size += n
		if err != nil {
			return size, err
		}
	}
	return size, nil
}

func (e *Encoder) encodeHeader(idx *MemoryIndex) (int, error) {
	if _, err := e.w.Write(header); err != nil {
		return 0, err
	}
	if err := gbinary.WriteUint32(e.w, VersionSupported); err != nil {
		return 4, err
	}
	return headerSize, nil
}

func (e *Encoder) encodeFanout(idx *MemoryIndex) (int, error) {
	for _, c := range idx.Fanout {
		if err := gbinary.WriteUint32(e.w, c); err != nil {
			return 0, err
		}
	}
	return fanoutSize, nil
}

func (e *Encoder) encodeNames(idx *MemoryIndex) (int, error) {
	n, err := e.w.Write(idx.Names)
	return n, err
}

func (e *Encoder) encodeCRC32(idx *MemoryIndex) (int, error) {
	n, err := e.w.Write(idx.CRC32)
	return n, err
}

func (e *Encoder) encodeOffsets(idx *MemoryIndex) (int, error) {
	n, err := e.w.Write(idx.Offset32)
	if err != nil {
		return n, err
	}
	if len(idx.Offset64) == 0 {
		return n, nil
	}
	n2, err := e.w.Write(idx.Offset64)
	return n + n2, err
}

func (e *Encoder) encodeChecksums(idx *MemoryIndex) (int, error) {
	n1, err := e.w.Write(idx.PackfileChecksum.Bytes())
	if err != nil {
		return n1, err
	}

	// The idx checksum covers everything written before it; sum now and
	// write directly to the underlying writer so it isn't hashed into
	// itself.
	idx.IdxChecksum = e.h.Sum()
	n2, err := e.raw.Write(idx.IdxChecksum.Bytes())
	return n1 + n2, err
}

package packfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"hash"
	"hash/crc32"
	"io"

	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
)

// ObjectHeader is everything known about a pack entry before its body is
// read: its kind, its offset, its declared inflated size, and, for delta
// entries, a reference to the base (by negative offset or by digest).
type ObjectHeader struct {
	Type            plumbing.ObjectType
	Offset          int64
	Size            int64
	Reference       plumbing.Hash // set for ref-delta
	OffsetReference int64         // set for ofs-delta
}

// Scanner provides sequential, low-level access to a pack stream: the
// header, then one ObjectHeader plus deflated body per entry, then the
// trailing checksum (read header once, NextObjectHeader/NextObject pairs,
// Checksum at the end), since this store always drives a scan
// start-to-finish rather than seeking around.
type Scanner struct {
	r   *countingByteReader
	crc hash.Hash32

	pendingHeader *ObjectHeader
	version       uint32
	objects       uint32
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	crc := crc32.NewIEEE()
	return &Scanner{
		r:   newCountingByteReader(r, crc),
		crc: crc,
	}
}

// Header reads the pack signature, version and object count. Calling it
// more than once is harmless; the parsed values are cached.
func (s *Scanner) Header() (version, objects uint32, err error) {
	if s.version != 0 {
		return s.version, s.objects, nil
	}

	sig := make([]byte, 4)
	if _, err = io.ReadFull(s.r, sig); err != nil {
		if err == io.EOF {
			err = ErrEmptyPackfile
		}
		return
	}
	if !bytes.Equal(sig, signature) {
		return 0, 0, ErrBadSignature
	}

	version, err = gbinary.ReadUint32(s.r)
	if err != nil {
		return 0, 0, ErrPackMalformed
	}
	if version != VersionSupported {
		return 0, 0, ErrUnsupportedVersion
	}
	s.version = version

	objects, err = gbinary.ReadUint32(s.r)
	if err != nil {
		return 0, 0, ErrPackMalformed
	}
	s.objects = objects
	return
}

// NextObjectHeader returns the header for the next entry, discarding the
// previous entry's body first if the caller never consumed it.
func (s *Scanner) NextObjectHeader() (*ObjectHeader, error) {
	if err := s.discardPending(); err != nil {
		return nil, err
	}

	s.crc.Reset()
	s.r.resetCount()

	h := &ObjectHeader{Offset: s.r.pos}

	t, first, err := s.readTypeAndFirstByte()
	if err != nil {
		return nil, err
	}
	if !t.Valid() && !t.IsDelta() {
		return nil, ErrPackMalformed
	}
	h.Type = t

	size, err := s.readLength(first)
	if err != nil {
		return nil, err
	}
	h.Size = size

	switch t {
	case plumbing.OFSDeltaObject:
		neg, err := gbinary.ReadVariableWidthInt(s.r)
		if err != nil {
			return nil, err
		}
		h.OffsetReference = h.Offset - neg
	case plumbing.REFDeltaObject:
		var buf [plumbing.HashSize]byte
		if _, err := io.ReadFull(s.r, buf[:]); err != nil {
			return nil, err
		}
		copy(h.Reference[:], buf[:])
	}

	s.pendingHeader = h
	return h, nil
}

func (s *Scanner) readTypeAndFirstByte() (plumbing.ObjectType, byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	t := plumbing.ObjectType((b & maskType) >> typeShift)
	return t, b, nil
}

func (s *Scanner) readLength(first byte) (int64, error) {
	length := int64(first & maskFirstLength)

	c := first
	shift := firstLengthBits
	for c&maskContinue != 0 {
		var err error
		c, err = s.r.ReadByte()
		if err != nil {
			return 0, err
		}
		length |= int64(c&maskLength) << shift
		shift += lengthBits
	}

	return length, nil
}

// NextObject inflates the current entry's body into w, returning the
// number of inflated bytes written and the CRC32 of the entry's
// compressed bytes as stored in the pack.
func (s *Scanner) NextObject(w io.Writer) (written int64, crc32 uint32, err error) {
	defer s.crc.Reset()

	s.pendingHeader = nil

	zr, err := zlib.NewReader(s.r)
	if err != nil {
		return 0, 0, ErrInflate
	}
	defer zr.Close()

	written, err = io.Copy(w, zr)
	if err != nil {
		return written, 0, ErrInflate
	}

	return written, s.crc.Sum32(), nil
}

func (s *Scanner) discardPending() error {
	if s.pendingHeader == nil {
		return nil
	}
	h := s.pendingHeader
	n, _, err := s.NextObject(io.Discard)
	if err != nil {
		return err
	}
	if n != h.Size {
		return ErrPackMalformed
	}
	return nil
}

// Checksum discards any unread entry body, then reads and returns the
// pack's trailing digest.
func (s *Scanner) Checksum() (plumbing.Hash, error) {
	if err := s.discardPending(); err != nil {
		return plumbing.ZeroHash, err
	}

	var h plumbing.Hash
	if _, err := io.ReadFull(s.r, h[:]); err != nil {
		return plumbing.ZeroHash, ErrPackMalformed
	}
	return h, nil
}

// countingByteReader wraps an io.Reader as an io.ByteReader while tracking
// absolute stream position (needed for ObjectHeader.Offset) and tee-ing
// every byte read through a CRC32, so Scanner.NextObject can report the
// CRC of exactly the bytes an entry occupies in the pack.
type countingByteReader struct {
	r   *bufio.Reader
	crc io.Writer
	pos int64
}

func newCountingByteReader(r io.Reader, crc io.Writer) *countingByteReader {
	return &countingByteReader{r: bufio.NewReader(r), crc: crc}
}

func (c *countingByteReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.pos += int64(n)
		_, _ = c.crc.Write(p[:n])
	}
	return n, err
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, err
	}
	c.pos++
	_, _ = c.crc.Write([]byte{b})
	return b, nil
}

func (c *countingByteReader) resetCount() {}

package objfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"io"
	"strconv"

	"github.com/gitcas/gitcas/plumbing"
)

// Reader inflates the loose-object on-disk framing and exposes the payload
// as an io.Reader, parsing the "<kind> <size>\0" preamble up front so
// Header can return immediately without consuming any payload bytes.
type Reader struct {
	zr   io.ReadCloser
	hr   *bufio.Reader
	h    plumbing.Hasher
	t    plumbing.ObjectType
	size int64
}

// NewReader opens r as a loose-object stream, inflating and parsing its
// header. It fails immediately on an empty stream, a non-zlib stream, or a
// zlib stream whose first bytes don't parse as "<kind> <size>\0".
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		zr: zr,
		hr: bufio.NewReader(zr),
	}

	if err := rd.readHeader(); err != nil {
		return nil, err
	}

	return rd, nil
}

func (r *Reader) readHeader() error {
	hdr, _ := r.hr.Peek(maxHeaderSize)
	nul := bytes.IndexByte(hdr, 0)
	if nul < 0 {
		if len(hdr) >= maxHeaderSize {
			return ErrHeaderTooLong
		}
		return ErrMalformedHeader
	}
	if bytes.IndexByte(hdr[:nul], ' ') < 0 {
		return ErrMalformedHeader
	}

	kind, err := r.hr.ReadString(' ')
	if err != nil {
		return ErrMalformedHeader
	}
	kind = kind[:len(kind)-1]

	t, err := plumbing.ParseObjectType(kind)
	if err != nil {
		return ErrMalformedHeader
	}

	sizeStr, err := r.hr.ReadString(0)
	if err != nil {
		return ErrMalformedHeader
	}
	sizeStr = sizeStr[:len(sizeStr)-1]

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil {
		return ErrMalformedHeader
	}

	r.t = t
	r.size = size
	r.h = plumbing.NewHasher(t, size)
	return nil
}

// Header returns the object's type and declared inflated size.
func (r *Reader) Header() (plumbing.ObjectType, int64, error) {
	return r.t, r.size, nil
}

// Read implements io.Reader over the object's payload, accumulating every
// byte read into the running digest so Hash reflects exactly what the
// caller has consumed.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.hr.Read(p)
	if n > 0 {
		if _, herr := r.h.Write(p[:n]); herr != nil {
			return n, herr
		}
	}
	return n, err
}

// Hash returns the digest of the header plus every payload byte read so
// far. Callers that want the canonical digest must read the payload to
// completion first.
func (r *Reader) Hash() plumbing.Hash {
	return r.h.Sum()
}

// Close closes the underlying zlib stream.
func (r *Reader) Close() error {
	return r.zr.Close()
}

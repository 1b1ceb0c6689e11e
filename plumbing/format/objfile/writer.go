package objfile

import (
	"compress/zlib"
	"fmt"
	"io"

	"github.com/gitcas/gitcas/plumbing"
)

// Writer emits the loose-object on-disk framing: WriteHeader writes the
// "<kind> <size>\0" preamble, then each call to Write streams up to size
// bytes of payload, all deflated through a single zlib.Writer.
type Writer struct {
	w io.Writer
	z *zlib.Writer
	h plumbing.Hasher

	closed     bool
	size       int64
	pos        int64
	hdrWritten bool
}

// NewWriter returns a Writer that deflates onto w. WriteHeader must be
// called before Write.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader declares the object's type and inflated size, which must
// match exactly what the subsequent Write calls supply.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	if !t.Valid() {
		return plumbing.ErrInvalidType
	}

	if size < 0 {
		return ErrNegativeSize
	}

	w.size = size
	// NewHasher primes the digest with the canonical "<kind> <size>\0"
	// header; only the deflate stream needs it written explicitly here.
	w.h = plumbing.NewHasher(t, size)
	w.z = zlib.NewWriter(w.w)

	header := fmt.Sprintf("%s %d\x00", t.String(), size)
	if _, err := w.z.Write([]byte(header)); err != nil {
		return err
	}

	w.hdrWritten = true
	return nil
}

// Write implements io.Writer, enforcing the size declared in WriteHeader.
// If p would push the total past that size, only the bytes up to the limit
// are written (and hashed/deflated) before ErrOverflow is returned.
func (w *Writer) Write(p []byte) (int, error) {
	if !w.hdrWritten {
		return 0, fmt.Errorf("objfile: WriteHeader must be called first")
	}

	overflow := false
	if w.pos+int64(len(p)) > w.size {
		p = p[:w.size-w.pos]
		overflow = true
	}

	if len(p) > 0 {
		n, err := w.z.Write(p)
		if err != nil {
			return n, err
		}
		if _, err := w.h.Write(p[:n]); err != nil {
			return n, err
		}
		w.pos += int64(n)
	}

	if overflow {
		return len(p), ErrOverflow
	}

	return len(p), nil
}

// Hash returns the digest of everything written so far, combining the
// header and payload exactly as the canonical object digest is defined.
func (w *Writer) Hash() plumbing.Hash {
	return w.h.Sum()
}

// Close flushes and closes the underlying zlib stream.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.z == nil {
		return nil
	}
	return w.z.Close()
}

package packfile

import (
	"compress/zlib"
	"io"

	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
)

// Encoder streams a set of ObjectToPack entries to w as pack format: header,
// one entry per object (raw or delta, per the planner's decision), trailing
// digest. It uses an offsetWriter tracking the current stream position so
// ofs-delta headers can reference an earlier entry, plus a running Hasher
// over everything written. It takes its input already planned rather than
// doing delta selection inline.
type Encoder struct {
	w      *offsetWriter
	zw     *zlib.Writer
	hasher plumbing.Hasher

	// offsets maps an object's own digest to the byte offset its entry was
	// written at, so a later ofs-delta entry can compute its negative
	// offset against an earlier base.
	offsets map[plumbing.Hash]int64
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	h := plumbing.Hasher{Digest: plumbing.NewDigest()}
	mw := io.MultiWriter(w, h)
	return &Encoder{
		w:       newOffsetWriter(mw),
		zw:      zlib.NewWriter(mw),
		hasher:  h,
		offsets: make(map[plumbing.Hash]int64),
	}
}

// Encode writes every object in objs, in order, and returns the pack's
// trailing digest. objs should already be planned (see DeltaSelector);
// Encode only decides wire representation, not which base to use.
func (e *Encoder) Encode(objs []*ObjectToPack) (plumbing.Hash, error) {
	if err := e.head(len(objs)); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, o := range objs {
		if err := e.entry(o); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return e.footer()
}

func (e *Encoder) head(count int) error {
	if _, err := e.w.Write(signature); err != nil {
		return err
	}
	if err := gbinary.WriteUint32(e.w, VersionSupported); err != nil {
		return err
	}
	return gbinary.WriteUint32(e.w, uint32(count))
}

func (e *Encoder) entry(o *ObjectToPack) error {
	offset := e.w.Offset()
	e.offsets[o.Object.Hash()] = offset

	wireType := o.Object.Type()
	payload := o.content
	if o.IsDelta() {
		if baseOffset, ok := e.offsets[o.Base.Object.Hash()]; ok {
			wireType = plumbing.OFSDeltaObject
			if err := e.entryHeader(wireType, int64(len(o.Delta))); err != nil {
				return err
			}
			if err := gbinary.WriteVariableWidthInt(e.w, offset-baseOffset); err != nil {
				return err
			}
		} else {
			wireType = plumbing.REFDeltaObject
			if err := e.entryHeader(wireType, int64(len(o.Delta))); err != nil {
				return err
			}
			if _, err := e.w.Write(o.Base.Object.Hash().Bytes()); err != nil {
				return err
			}
		}
		payload = o.Delta
	} else {
		if err := e.entryHeader(wireType, int64(len(payload))); err != nil {
			return err
		}
	}

	e.zw.Reset(e.w)
	if _, err := e.zw.Write(payload); err != nil {
		return err
	}
	return e.zw.Close()
}

// entryHeader writes the variable-length (kind, size) header shared by
// every entry, mirroring Scanner.readLength/readTypeAndFirstByte in
// reverse.
func (e *Encoder) entryHeader(t plumbing.ObjectType, size int64) error {
	c := (byte(t) << typeShift) | (byte(size) & maskFirstLength)
	size >>= firstLengthBits

	var header []byte
	for size != 0 {
		header = append(header, c|maskContinue)
		c = byte(size) & maskLength
		size >>= lengthBits
	}
	header = append(header, c)

	_, err := e.w.Write(header)
	return err
}

func (e *Encoder) footer() (plumbing.Hash, error) {
	h := e.hasher.Sum()
	_, err := e.w.Write(h.Bytes())
	return h, err
}

// offsetWriter wraps an io.Writer, tracking how many bytes have passed
// through it so entries can record their own starting offset.
type offsetWriter struct {
	w      io.Writer
	offset int64
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w}
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

func (ow *offsetWriter) Offset() int64 { return ow.offset }

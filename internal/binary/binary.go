// Package binary provides the small big-endian and LEB128 helpers the pack
// and index codecs are built on.
package binary

import (
	"encoding/binary"
	"io"
)

// WriteUint32 writes v to w in big-endian order.
func WriteUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.BigEndian, v)
}

// WriteUint16 writes v to w in big-endian order.
func WriteUint16(w io.Writer, v uint16) error {
	return binary.Write(w, binary.BigEndian, v)
}

// WriteUint64 writes v to w in big-endian order.
func WriteUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.BigEndian, v)
}

// ReadUint32 reads a big-endian uint32 from r.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// ReadUint16 reads a big-endian uint16 from r.
func ReadUint16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// ReadUint64 reads a big-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.BigEndian, &v)
	return v, err
}

// DecodeLEB128 decodes a little-endian-base-128 varint used by the delta
// format's base-size and result-size fields, returning the value and the
// remaining, unconsumed bytes.
func DecodeLEB128(b []byte) (uint64, []byte) {
	var (
		val uint64
		sh  uint
	)
	for i, c := range b {
		val |= (uint64(c) & 0x7f) << sh
		if c&0x80 == 0 {
			return val, b[i+1:]
		}
		sh += 7
	}
	return val, nil
}

// DecodeLEB128FromReader is the streaming counterpart of DecodeLEB128, used
// when the delta instructions are consumed incrementally rather than from a
// fully buffered slice.
func DecodeLEB128FromReader(r io.ByteReader) (uint64, error) {
	var (
		val uint64
		sh  uint
	)
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		val |= (uint64(c) & 0x7f) << sh
		if c&0x80 == 0 {
			return val, nil
		}
		sh += 7
	}
}

// EncodeLEB128 appends the LEB128 encoding of v to dst.
func EncodeLEB128(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}

// WriteVariableWidthInt writes a signed, sign-and-magnitude-free variable
// width integer in the continuation-bit format used for ofs-delta base
// offsets: 7 bits per byte, high bit set to continue, big-endian digit
// order (most significant group first), matching git's offset encoding.
func WriteVariableWidthInt(w io.Writer, n int64) error {
	var buf [10]byte
	pos := len(buf) - 1
	buf[pos] = byte(n & 0x7f)
	n >>= 7
	for n != 0 {
		n--
		pos--
		buf[pos] = 0x80 | byte(n&0x7f)
		n >>= 7
	}

	_, err := w.Write(buf[pos:])
	return err
}

// ReadVariableWidthInt reads the ofs-delta base-offset encoding written by
// WriteVariableWidthInt.
func ReadVariableWidthInt(r io.ByteReader) (int64, error) {
	c, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	n := int64(c & 0x7f)
	for c&0x80 != 0 {
		n++
		c, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		n = (n << 7) | int64(c&0x7f)
	}

	return n, nil
}

package packfile

import gbinary "github.com/gitcas/gitcas/internal/binary"

// maxCopyLen bounds a single COPY instruction's length in an emitted delta.
// It stays one below the 0x10000 value that decodeCopySize treats as "size
// field absent, so it means 0x10000", so an encoded delta never has to
// round-trip through that special case.
const maxCopyLen = 0xffff

// DiffDelta computes the delta that transforms base into target: the
// source and result sizes, then a sequence of COPY/INSERT instructions per
// the format patch_delta.go applies.
func DiffDelta(base, target []byte) []byte {
	out := gbinary.EncodeLEB128(nil, uint64(len(base)))
	out = gbinary.EncodeLEB128(out, uint64(len(target)))

	m := newMatcher(base, target)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case tagEqual:
			start := op.I1
			remaining := op.I2 - op.I1
			for remaining > 0 {
				n := remaining
				if n > maxCopyLen {
					n = maxCopyLen
				}
				out = append(out, encodeCopyInstruction(start, n)...)
				start += n
				remaining -= n
			}

		case tagInsert:
			pos := op.J1
			remaining := op.J2 - op.J1
			for remaining > 0 {
				n := remaining
				if n > 127 {
					n = 127
				}
				out = append(out, byte(n))
				out = append(out, target[pos:pos+n]...)
				pos += n
				remaining -= n
			}
		}
	}

	return out
}

func encodeCopyInstruction(offset, length int) []byte {
	code := byte(0x80)
	var fields []byte

	if offset&0xff != 0 {
		fields = append(fields, byte(offset))
		code |= 0x01
	}
	if offset&0xff00 != 0 {
		fields = append(fields, byte(offset>>8))
		code |= 0x02
	}
	if offset&0xff0000 != 0 {
		fields = append(fields, byte(offset>>16))
		code |= 0x04
	}
	if offset&0xff000000 != 0 {
		fields = append(fields, byte(offset>>24))
		code |= 0x08
	}

	if length&0xff != 0 {
		fields = append(fields, byte(length))
		code |= 0x10
	}
	if length&0xff00 != 0 {
		fields = append(fields, byte(length>>8))
		code |= 0x20
	}
	if length&0xff0000 != 0 {
		fields = append(fields, byte(length>>16))
		code |= 0x40
	}

	return append([]byte{code}, fields...)
}

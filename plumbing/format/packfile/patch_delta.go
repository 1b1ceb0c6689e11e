package packfile

import (
	"errors"

	gbinary "github.com/gitcas/gitcas/internal/binary"
)

// See https://github.com/git/git/blob/master/delta.h and
// https://github.com/git/git/blob/master/patch-delta.c for the format this
// implements.

var (
	// ErrInvalidDelta is returned when a delta stream is truncated or
	// otherwise malformed.
	ErrInvalidDelta = errors.New("invalid delta")
	// ErrDeltaCmd is returned when a delta instruction byte is neither a
	// COPY nor an INSERT.
	ErrDeltaCmd = errors.New("wrong delta command")
)

const minDeltaSize = 4

// maxCopySize is the copy length implied when a COPY instruction's size
// sub-fields are all absent (git's "0 means 0x10000" convention).
const maxCopySize = 0x10000

type bitfield struct {
	mask  byte
	shift uint
}

var copyOffsetFields = []bitfield{
	{mask: 0x01, shift: 0},
	{mask: 0x02, shift: 8},
	{mask: 0x04, shift: 16},
	{mask: 0x08, shift: 24},
}

var copySizeFields = []bitfield{
	{mask: 0x10, shift: 0},
	{mask: 0x20, shift: 8},
	{mask: 0x40, shift: 16},
}

// PatchDelta reconstructs a target object by applying delta to src. The
// arena-provided dst buffer is grown (never shrunk) to the delta's declared
// result size and returned filled with the reconstructed bytes.
func PatchDelta(dst, src, delta []byte) ([]byte, error) {
	if len(src) == 0 || len(delta) < minDeltaSize {
		return nil, ErrInvalidDelta
	}

	srcSz, delta := gbinary.DecodeLEB128(delta)
	if srcSz != uint64(len(src)) {
		return nil, ErrInvalidDelta
	}

	targetSz, delta := gbinary.DecodeLEB128(delta)
	if uint64(cap(dst)) < targetSz {
		dst = make([]byte, 0, targetSz)
	}
	dst = dst[:0]

	remaining := targetSz
	for {
		if len(delta) == 0 {
			return nil, ErrInvalidDelta
		}

		cmd := delta[0]
		delta = delta[1:]

		switch {
		case isCopyFromSrc(cmd):
			var offset, sz uint64
			var err error
			offset, delta, err = decodeCopyOffset(cmd, delta)
			if err != nil {
				return nil, err
			}
			sz, delta, err = decodeCopySize(cmd, delta)
			if err != nil {
				return nil, err
			}
			if sz > remaining || offset+sz > srcSz || offset+sz < offset {
				return nil, ErrDeltaOutOfRange
			}
			dst = append(dst, src[offset:offset+sz]...)
			remaining -= sz

		case isCopyFromDelta(cmd):
			sz := uint64(cmd)
			if sz > remaining || uint64(len(delta)) < sz {
				return nil, ErrInvalidDelta
			}
			dst = append(dst, delta[:sz]...)
			delta = delta[sz:]
			remaining -= sz

		default:
			return nil, ErrDeltaCmd
		}

		if remaining == 0 {
			break
		}
	}

	return dst, nil
}

func isCopyFromSrc(cmd byte) bool {
	return cmd&maskContinue != 0
}

func isCopyFromDelta(cmd byte) bool {
	return cmd&maskContinue == 0 && cmd != 0
}

func decodeCopyOffset(cmd byte, delta []byte) (uint64, []byte, error) {
	var offset uint64
	for _, f := range copyOffsetFields {
		if cmd&f.mask != 0 {
			if len(delta) == 0 {
				return 0, nil, ErrInvalidDelta
			}
			offset |= uint64(delta[0]) << f.shift
			delta = delta[1:]
		}
	}
	return offset, delta, nil
}

func decodeCopySize(cmd byte, delta []byte) (uint64, []byte, error) {
	var sz uint64
	for _, f := range copySizeFields {
		if cmd&f.mask != 0 {
			if len(delta) == 0 {
				return 0, nil, ErrInvalidDelta
			}
			sz |= uint64(delta[0]) << f.shift
			delta = delta[1:]
		}
	}
	if sz == 0 {
		sz = maxCopySize
	}
	return sz, delta, nil
}

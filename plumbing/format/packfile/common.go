// Package packfile implements the pack wire format: a header, a sequence
// of deflated object entries (full or delta-encoded), and a trailing
// digest, plus the planner that decides how to delta-compress a set of
// objects into one.
package packfile

import (
	"errors"

	"github.com/gitcas/gitcas/plumbing"
)

// signature is the 4-byte magic every pack stream starts with.
var signature = []byte{'P', 'A', 'C', 'K'}

// VersionSupported is the only pack format version this package reads or
// writes.
const VersionSupported uint32 = 2

const (
	firstLengthBits = uint8(4)
	lengthBits      = uint8(7)
	maskFirstLength = byte(0x0f)
	maskContinue    = byte(0x80)
	maskLength      = byte(0x7f)
	maskType        = byte(0x70)
	typeShift       = uint8(4)
)

// Errors surfaced while reading or writing a pack, named after the taxonomy
// of failure kinds the store distinguishes.
var (
	ErrEmptyPackfile      = errors.New("empty packfile")
	ErrBadSignature       = errors.New("malformed pack file signature")
	ErrUnsupportedVersion = errors.New("unsupported packfile version")
	ErrPackMalformed      = errors.New("malformed pack file")
	ErrInflate            = errors.New("inflate error")
	ErrDeltaOutOfRange    = errors.New("delta copy operation out of range")
	ErrDeltaCycle         = errors.New("delta chain too deep")
	ErrDeltaPlan          = errors.New("delta planner could not produce a valid pack")
)

// MissingBaseError reports a ref-delta whose base could not be resolved by
// any backend the decoder was given. It is not necessarily fatal to the
// caller, who may have other backends left to try.
type MissingBaseError struct {
	Hash plumbing.Hash
}

func (e *MissingBaseError) Error() string {
	return "missing delta base: " + e.Hash.String()
}

// Observer is notified as a pack is scanned, independent of what the
// scan is for: building an index, rehydrating a storage backend, or just
// validating a locally produced pack.
type Observer interface {
	// OnHeader is called once, with the object count from the pack header.
	OnHeader(count uint32) error
	// OnInflatedObjectHeader is called for every entry, before its body is
	// read.
	OnInflatedObjectHeader(t plumbing.ObjectType, size int64, pos int64) error
	// OnInflatedObjectContent is called once a non-delta entry's body has
	// been inflated, with the entry's final digest and its CRC32. Delta
	// entries do not trigger it, and Parser always passes a nil content.
	OnInflatedObjectContent(h plumbing.Hash, pos int64, crc uint32, content []byte) error
	// OnFooter is called once, with the pack's trailing digest.
	OnFooter(h plumbing.Hash) error
}

// Package plumbing implements the core types shared by every layer of the
// object store: content hashes, object kinds, the encoded-object interface
// and references.
package plumbing

import (
	"encoding/hex"
	"sort"
)

// HashSize is the width, in bytes, of every digest produced by this store.
// The store is SHA-1 only; the digest algorithm itself is an injected
// capability (see Hasher), but its output width is fixed by the on-disk
// format (two hex chars + 38 hex chars per loose path, 20-byte binary
// entries in the pack index).
const HashSize = 20

// HexSize is the width, in ASCII hex characters, of a Hash's string form.
const HexSize = HashSize * 2

// Hash is a fixed-width content identifier: the digest of an object's
// canonical byte representation. The zero Hash is the all-zeroes hash.
type Hash [HashSize]byte

// ZeroHash is a Hash with all bytes set to zero.
var ZeroHash Hash

// NewHash parses a hexadecimal string into a Hash. Invalid input yields the
// zero Hash.
func NewHash(s string) Hash {
	h, _ := FromHex(s)
	return h
}

// FromHex parses a hexadecimal string into a Hash, reporting whether the
// input was well-formed.
func FromHex(s string) (Hash, bool) {
	var h Hash
	if len(s) != HexSize {
		return h, false
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, false
	}

	copy(h[:], b)
	return h, true
}

// FromBytes copies a HashSize-byte slice into a Hash, reporting whether the
// input had the right width.
func FromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != HashSize {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// IsZero reports whether h is the all-zeroes hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String returns the lowercase hexadecimal representation of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns the raw bytes of h.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Compare compares h's bytes against an arbitrary byte slice, following the
// semantics of bytes.Compare.
func (h Hash) Compare(b []byte) int {
	for i := 0; i < HashSize && i < len(b); i++ {
		if h[i] != b[i] {
			if h[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(b) < HashSize:
		return 1
	case len(b) > HashSize:
		return -1
	default:
		return 0
	}
}

// HasPrefix reports whether h starts with the given byte prefix, used for
// abbreviated-hash lookups against the pack index fan-out table.
func (h Hash) HasPrefix(prefix []byte) bool {
	if len(prefix) > HashSize {
		return false
	}
	for i, b := range prefix {
		if h[i] != b {
			return false
		}
	}
	return true
}

// IsHash reports whether s looks like a valid hex-encoded Hash.
func IsHash(s string) bool {
	if len(s) != HexSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// HashSlice attaches sort.Interface to []Hash, increasing order.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return p[i].Compare(p[j][:]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// SortHashes sorts a slice of Hash values in increasing order.
func SortHashes(a []Hash) {
	sort.Sort(HashSlice(a))
}

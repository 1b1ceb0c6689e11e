package plumbing

import (
	"hash"
	"strconv"

	"github.com/pjbgf/sha1cd"
)

// Digest is the injected capability that produces content hashes. The store
// never hard-codes a hash algorithm; it only depends on this shape. The
// default implementation, installed by NewHasher, is the collision-detecting
// SHA-1 from github.com/pjbgf/sha1cd.
type Digest interface {
	hash.Hash
}

// NewDigest returns the default Digest implementation used throughout the
// store. It is swappable: callers that need a different algorithm (e.g. for
// testing or for an alternate object format) can implement Digest themselves
// and construct a Hasher directly.
func NewDigest() Digest {
	return sha1cd.New()
}

// Hasher computes an object's digest over its canonical byte representation:
// "<kind> <inflated-length>\0" followed by the inflated payload.
type Hasher struct {
	Digest
}

// NewHasher returns a Hasher primed with the canonical object header for the
// given kind and size. Callers then Write the object's payload and call Sum.
func NewHasher(t ObjectType, size int64) Hasher {
	h := Hasher{Digest: NewDigest()}
	h.Reset(t, size)
	return h
}

// Reset reinitializes the hasher with a new object header, allowing a single
// Hasher to be reused across objects.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Digest.Reset()
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// Sum returns the computed Hash.
func (h Hasher) Sum() Hash {
	var out Hash
	copy(out[:], h.Digest.Sum(nil))
	return out
}

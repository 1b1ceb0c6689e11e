// Package storer declares the collaborator-facing interfaces the rest of
// the engine is built against: object storage, reference storage, and the
// composite Storer the top-level façade implements.
package storer

import "github.com/gitcas/gitcas/plumbing"

// EncodedObjectStorer is the read/write/enumerate surface over the object
// graph, independent of which backend (loose, packed, or both) answers a
// given request.
type EncodedObjectStorer interface {
	// NewEncodedObject returns a detached, empty object ready to be filled
	// in and handed to SetEncodedObject.
	NewEncodedObject() plumbing.EncodedObject
	// SetEncodedObject persists o and returns its digest.
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	// EncodedObject returns the object for h. If t is not plumbing.AnyObject
	// the call fails with plumbing.ErrObjectNotFound unless the stored
	// object's type matches t.
	EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error)
	// HasEncodedObject reports whether h is present, without materializing
	// its contents.
	HasEncodedObject(h plumbing.Hash) error
	// EncodedObjectSize returns the inflated size of h's payload without
	// materializing it.
	EncodedObjectSize(h plumbing.Hash) (int64, error)
	// IterEncodedObjects returns an iterator over every object of kind t (or
	// every object, for plumbing.AnyObject).
	IterEncodedObjects(t plumbing.ObjectType) (EncodedObjectIter, error)
}

// EncodedObjectIter is a closable iterator over objects.
type EncodedObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	ForEach(func(plumbing.EncodedObject) error) error
	Close()
}

// ReferenceStorer is the read/write/enumerate surface over the named
// reference directory.
type ReferenceStorer interface {
	SetReference(*plumbing.Reference) error
	// CheckAndSetReference sets ref only if the reference currently named by
	// ref.Name() resolves to old (or old is nil and the name is absent).
	CheckAndSetReference(ref, old *plumbing.Reference) error
	Reference(plumbing.ReferenceName) (*plumbing.Reference, error)
	RemoveReference(plumbing.ReferenceName) error
	IterReferences() (ReferenceIter, error)
	// CountLooseRefs reports how many loose (non-packed) reference files
	// exist under refs/, used by callers deciding whether a repack of refs
	// is useful.
	CountLooseRefs() (int, error)
}

// ReferenceIter is a closable iterator over references.
type ReferenceIter interface {
	Next() (*plumbing.Reference, error)
	ForEach(func(*plumbing.Reference) error) error
	Close()
}

// Storer is the composite surface the top-level façade implements: object
// storage plus reference storage.
type Storer interface {
	EncodedObjectStorer
	ReferenceStorer
}

// PackfileWriter is implemented by storers that can accept a raw packfile
// stream directly, short-circuiting the generic "decode then SetEncodedObject
// each object" path used for arbitrary storers.
type PackfileWriter interface {
	// PackfileWriter returns a writer that ingests a full pack stream. The
	// pack is published when the writer is closed.
	PackfileWriter() (WriteCommitCloser, error)
}

// WriteCommitCloser is the io.WriteCloser shape a PackfileWriter returns.
// It does not expose the pack digest or object count of the ingested pack.
type WriteCommitCloser interface {
	Write([]byte) (int, error)
	Close() error
}

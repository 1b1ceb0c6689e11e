// Package object decodes the four persisted object kinds — Blob, Tree,
// Commit, Tag — into structured Go values on top of the generic
// plumbing.EncodedObject the storage layer hands back. It deliberately
// stops at decoding: graph-walking porcelain (commit ancestry, tree
// diffing, merge-base) and working-tree checkout are out of scope.
package object

import (
	"errors"

	"github.com/gitcas/gitcas/plumbing"
)

// ErrUnsupportedObject is returned by Decode when the stored object's type
// doesn't match the variant being decoded into.
var ErrUnsupportedObject = errors.New("unsupported object type")

// ErrMalformedObject is returned when an object's canonical bytes don't
// parse as the expected variant.
var ErrMalformedObject = errors.New("malformed object")

// Object is the common surface every decoded variant satisfies.
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	Decode(plumbing.EncodedObject) error
	Encode(plumbing.EncodedObject) error
}

// DecodeObject dispatches on o.Type() and returns the matching decoded
// variant, the way a caller walking an arbitrary object graph (e.g. a
// repack or a tree traversal) needs to without knowing the kind up front.
func DecodeObject(o plumbing.EncodedObject) (Object, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		c := &Commit{}
		if err := c.Decode(o); err != nil {
			return nil, err
		}
		return c, nil
	case plumbing.TreeObject:
		t := &Tree{}
		if err := t.Decode(o); err != nil {
			return nil, err
		}
		return t, nil
	case plumbing.TagObject:
		t := &Tag{}
		if err := t.Decode(o); err != nil {
			return nil, err
		}
		return t, nil
	case plumbing.BlobObject:
		b := &Blob{}
		if err := b.Decode(o); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, ErrUnsupportedObject
	}
}

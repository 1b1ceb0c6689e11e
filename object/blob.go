package object

import (
	"io"

	"github.com/gitcas/gitcas/plumbing"
)

// Blob is an opaque byte payload; its canonical bytes are the payload
// itself, with no further structure.
type Blob struct {
	hash plumbing.Hash
	size int64
	obj  plumbing.EncodedObject
}

var _ Object = (*Blob)(nil)

// ID returns the blob's digest.
func (b *Blob) ID() plumbing.Hash { return b.hash }

// Type always returns plumbing.BlobObject.
func (b *Blob) Type() plumbing.ObjectType { return plumbing.BlobObject }

// Size returns the payload length.
func (b *Blob) Size() int64 { return b.size }

// Reader returns a fresh reader over the blob's payload.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return b.obj.Reader()
}

// Decode reads o's metadata; o must already be of kind BlobObject.
func (b *Blob) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.BlobObject {
		return ErrUnsupportedObject
	}
	b.hash = o.Hash()
	b.size = o.Size()
	b.obj = o
	return nil
}

// Encode writes content to o as a blob.
func (b *Blob) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.BlobObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := b.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := io.Copy(w, r)
	if err != nil {
		return err
	}
	o.SetSize(n)
	return nil
}

// NewBlob builds a Blob directly from in-memory content, useful when
// constructing an object graph to write rather than decoding one already
// read from storage.
func NewBlob(content []byte) *Blob {
	o := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, content)
	return &Blob{hash: o.Hash(), size: o.Size(), obj: o}
}

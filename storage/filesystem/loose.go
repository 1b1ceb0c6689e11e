// Package filesystem composes the loose store, the pack engine, ingestion
// and the reference store into a top-level hybrid object retrieval engine
// backed by a dotgit repository directory.
package filesystem

import (
	"io"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/format/objfile"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

// Loose is the one-object-per-file backend: object <-> file mapping and
// (de)serialization through the deflate codec.
type Loose struct {
	dot *dotgit.DotGit
}

// NewLoose returns a Loose store rooted at dot.
func NewLoose(dot *dotgit.DotGit) *Loose {
	return &Loose{dot: dot}
}

// Has reports whether h exists as a loose object.
func (l *Loose) Has(h plumbing.Hash) (bool, error) {
	f, err := l.dot.Object(h)
	if err == dotgit.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = f.Close()
	return true, nil
}

// Size returns h's inflated payload size without materializing the body:
// it opens the object, inflates only far enough to parse the
// "<kind> <size>\0" header, and stops.
func (l *Loose) Size(h plumbing.Hash) (int64, error) {
	f, err := l.dot.Object(h)
	if err != nil {
		if err == dotgit.ErrNotFound {
			return 0, plumbing.ErrObjectNotFound
		}
		return 0, err
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	_, size, err := r.Header()
	return size, err
}

// Get reads and fully inflates h, returning it as a MemoryObject.
func (l *Loose) Get(h plumbing.Hash) (plumbing.EncodedObject, error) {
	f, err := l.dot.Object(h)
	if err != nil {
		if err == dotgit.ErrNotFound {
			return nil, plumbing.ErrObjectNotFound
		}
		return nil, err
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	t, size, err := r.Header()
	if err != nil {
		return nil, err
	}

	content := make([]byte, size)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, err
	}

	return plumbing.NewMemoryObjectFrom(t, content), nil
}

// GetInto inflates h's payload directly into buf, which must already have
// length equal to the object's declared size. Used when a caller
// (typically a delta base reconstruction) already knows the required
// capacity.
func (l *Loose) GetInto(buf []byte, h plumbing.Hash) (plumbing.ObjectType, error) {
	f, err := l.dot.Object(h)
	if err != nil {
		if err == dotgit.ErrNotFound {
			return plumbing.InvalidObject, plumbing.ErrObjectNotFound
		}
		return plumbing.InvalidObject, err
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return plumbing.InvalidObject, err
	}
	defer r.Close()

	t, size, err := r.Header()
	if err != nil {
		return plumbing.InvalidObject, err
	}
	if int64(len(buf)) != size {
		return plumbing.InvalidObject, plumbing.ErrInvalidType
	}

	_, err = io.ReadFull(r, buf)
	return t, err
}

// Set serializes o to canonical bytes, digests it, and writes it to a temp
// file which is then renamed atomically into place.
func (l *Loose) Set(o plumbing.EncodedObject) (plumbing.Hash, error) {
	rd, err := o.Reader()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer rd.Close()

	w, err := l.dot.NewObjectWriter()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if err := w.WriteHeader(o.Type(), o.Size()); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if _, err := io.Copy(w, rd); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}

	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return w.Hash(), nil
}

// WriteInflated is the write_inflated operation: build and store a loose
// object directly from a kind and its already-inflated payload.
func (l *Loose) WriteInflated(t plumbing.ObjectType, content []byte) (plumbing.Hash, error) {
	return l.Set(plumbing.NewMemoryObjectFrom(t, content))
}

// List returns every loose object's digest.
func (l *Loose) List() ([]plumbing.Hash, error) {
	return l.dot.Objects()
}

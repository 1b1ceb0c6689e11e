package object

import (
	"bytes"
	"io"
	"sort"

	"github.com/gitcas/gitcas/plumbing"
)

// TreeEntry is one (mode, name, target) triple inside a Tree's canonical
// bytes. Name never contains a slash: a subdirectory is a nested Tree
// object, referenced by its own entry.
type TreeEntry struct {
	Name string
	Mode FileMode
	Hash plumbing.Hash
}

// Tree is a flat directory listing; its canonical bytes are its entries
// sorted by the same byte order git uses for tree comparison (each
// directory name compared as if suffixed with "/").
type Tree struct {
	hash    plumbing.Hash
	Entries []TreeEntry
}

var _ Object = (*Tree)(nil)

// ID returns the tree's digest.
func (t *Tree) ID() plumbing.Hash { return t.hash }

// Type always returns plumbing.TreeObject.
func (t *Tree) Type() plumbing.ObjectType { return plumbing.TreeObject }

// File looks up a direct entry by name.
func (t *Tree) File(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Decode parses o's payload into Entries; o must already be of kind
// TreeObject.
func (t *Tree) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.TreeObject {
		return ErrUnsupportedObject
	}

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	t.hash = o.Hash()
	t.Entries = t.Entries[:0]

	for len(raw) > 0 {
		sp := bytes.IndexByte(raw, ' ')
		if sp < 0 {
			return ErrMalformedObject
		}
		mode, err := ParseFileMode(string(raw[:sp]))
		if err != nil {
			return err
		}

		nul := bytes.IndexByte(raw[sp+1:], 0)
		if nul < 0 {
			return ErrMalformedObject
		}
		name := string(raw[sp+1 : sp+1+nul])

		hashStart := sp + 1 + nul + 1
		if hashStart+plumbing.HashSize > len(raw) {
			return ErrMalformedObject
		}
		var h plumbing.Hash
		copy(h[:], raw[hashStart:hashStart+plumbing.HashSize])

		t.Entries = append(t.Entries, TreeEntry{Name: name, Mode: mode, Hash: h})
		raw = raw[hashStart+plumbing.HashSize:]
	}

	return nil
}

// Encode writes Entries, sorted, as o's payload.
func (t *Tree) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TreeObject)

	sorted := append([]TreeEntry(nil), t.Entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return treeEntryLess(sorted[i], sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(e.Mode.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	n, err := w.Write(buf.Bytes())
	if err != nil {
		return err
	}
	o.SetSize(int64(n))
	return nil
}

// treeEntryLess orders a before b the way git compares tree entries: a
// directory name sorts as if it had a trailing slash, so "foo" (a file)
// sorts before "foo.txt", while a "foo" subtree compares as "foo/" and
// sorts after both.
func treeEntryLess(a, b TreeEntry) bool {
	an, bn := a.Name, b.Name
	if a.Mode.IsDir() {
		an += "/"
	}
	if b.Mode.IsDir() {
		bn += "/"
	}
	return an < bn
}

// NewTree builds a Tree directly from entries, useful when constructing an
// object graph to write.
func NewTree(entries []TreeEntry) *Tree {
	return &Tree{Entries: entries}
}

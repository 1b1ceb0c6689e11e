package filesystem

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/format/packfile"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(memfs.New())
	require.NoError(t, err)
	return s
}

func TestStorageRoundTripsAnObject(t *testing.T) {
	s := newTestStorage(t)
	content := []byte("hello, content-addressed world\n")
	obj := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, content)

	h, err := s.SetEncodedObject(obj)
	require.NoError(t, err)
	assert.Equal(t, obj.Hash(), h)

	got, err := s.EncodedObject(plumbing.BlobObject, h)
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, got.Type())
	assert.Equal(t, int64(len(content)), got.Size())

	r, err := got.Reader()
	require.NoError(t, err)
	defer r.Close()
	gotContent, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, gotContent)
}

func TestStorageWriteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	content := []byte("the same bytes, twice\n")
	obj := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, content)

	h1, err := s.SetEncodedObject(obj)
	require.NoError(t, err)
	h2, err := s.SetEncodedObject(obj)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	hashes, err := s.loose.List()
	require.NoError(t, err)
	assert.Len(t, hashes, 1)
}

func TestStorageEncodedObjectNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.EncodedObject(plumbing.AnyObject, plumbing.NewHash("000000000000000000000000000000000000000a"))
	assert.ErrorIs(t, err, plumbing.ErrObjectNotFound)
}

func TestStorageHasEncodedObject(t *testing.T) {
	s := newTestStorage(t)
	obj := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("present\n"))
	h, err := s.SetEncodedObject(obj)
	require.NoError(t, err)

	assert.NoError(t, s.HasEncodedObject(h))
	assert.ErrorIs(t, s.HasEncodedObject(plumbing.NewHash("000000000000000000000000000000000000000b")), plumbing.ErrObjectNotFound)
}

// TestStoragePackfileWriterIngestsAndMatchesLooseReads writes the same set
// of objects once as loose (into a second Storage) and once through a pack
// stream, and checks every
// object reads back identically regardless of which backend served it —
// the pack/loose equivalence the façade promises.
func TestStoragePackfileWriterIngestsAndMatchesLooseReads(t *testing.T) {
	s := newTestStorage(t)

	blob := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("packed blob contents\n"))
	other := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("packed blob contents, slightly different\n"))

	var buf bytes.Buffer
	enc := packfile.NewEncoder(&buf)
	blobBytes := mustContent(t, blob)
	otherBytes := mustContent(t, other)
	_, err := enc.Encode([]*packfile.ObjectToPack{
		packfile.NewObjectToPack(blob, blobBytes),
		packfile.NewObjectToPack(other, otherBytes),
	})
	require.NoError(t, err)

	w, err := s.PackfileWriter()
	require.NoError(t, err)
	_, err = io.Copy(w, &buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	loose := newTestStorage(t)
	for _, want := range []*plumbing.MemoryObject{blob, other} {
		_, err := loose.SetEncodedObject(want)
		require.NoError(t, err)
		fromLoose, err := loose.EncodedObject(plumbing.BlobObject, want.Hash())
		require.NoError(t, err)

		got, err := s.EncodedObject(plumbing.BlobObject, want.Hash())
		require.NoError(t, err)
		r, err := got.Reader()
		require.NoError(t, err)
		gotContent, err := io.ReadAll(r)
		require.NoError(t, err)
		r.Close()
		assert.Equal(t, want.Content(), gotContent)
		assert.Equal(t, mustContent(t, fromLoose), gotContent)
	}

	ok, err := s.packs.Has(blob.Hash())
	require.NoError(t, err)
	assert.True(t, ok, "object should be served from the registered pack")
}

func TestStorageIngestAtomicityRejectsTruncatedStream(t *testing.T) {
	s := newTestStorage(t)

	blob := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("never published\n"))
	var buf bytes.Buffer
	_, err := packfile.NewEncoder(&buf).Encode([]*packfile.ObjectToPack{
		packfile.NewObjectToPack(blob, mustContent(t, blob)),
	})
	require.NoError(t, err)

	truncated := buf.Bytes()[:buf.Len()-4]
	_, _, err = s.ingest.From(bytes.NewReader(truncated))
	require.Error(t, err)

	packs, err := s.dot.ObjectPacks()
	require.NoError(t, err)
	assert.Len(t, packs, 0, "a failed ingestion must not publish a pack")
}

func TestStorageCacheIsTransparent(t *testing.T) {
	s := newTestStorage(t)
	content := []byte("cache me once, cache me twice\n")
	obj := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, content)
	h, err := s.SetEncodedObject(obj)
	require.NoError(t, err)

	cold, err := s.EncodedObject(plumbing.BlobObject, h)
	require.NoError(t, err)
	coldContent := mustContent(t, cold)

	warm, err := s.EncodedObject(plumbing.BlobObject, h)
	require.NoError(t, err)
	warmContent := mustContent(t, warm)

	assert.Equal(t, coldContent, warmContent)
	assert.Equal(t, content, warmContent)
}

func TestStorageReferenceSetGetRemove(t *testing.T) {
	s := newTestStorage(t)
	name := plumbing.ReferenceName("refs/heads/feature")
	ref := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000001"))

	require.NoError(t, s.SetReference(ref))

	got, err := s.Reference(name)
	require.NoError(t, err)
	assert.Equal(t, ref.Hash(), got.Hash())

	require.NoError(t, s.RemoveReference(name))
	_, err = s.Reference(name)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestStorageHasReference(t *testing.T) {
	s := newTestStorage(t)
	name := plumbing.ReferenceName("refs/heads/feature")

	ok, err := s.HasReference(name)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetReference(plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000011"))))

	ok, err = s.HasReference(name)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorageIterEncodedObjectsFiltersByType(t *testing.T) {
	s := newTestStorage(t)
	blob := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("a blob\n"))
	_, err := s.SetEncodedObject(blob)
	require.NoError(t, err)

	it, err := s.IterEncodedObjects(plumbing.BlobObject)
	require.NoError(t, err)
	var count int
	err = it.ForEach(func(o plumbing.EncodedObject) error {
		count++
		assert.Equal(t, plumbing.BlobObject, o.Type())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func mustContent(t *testing.T, o plumbing.EncodedObject) []byte {
	t.Helper()
	r, err := o.Reader()
	require.NoError(t, err)
	defer r.Close()
	buf := make([]byte, o.Size())
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	return buf
}

package dotgit

import (
	"io"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
)

func TestInitializeCreatesHEADPointingAtMaster(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	head, err := d.Ref(plumbing.HEAD)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, plumbing.SymbolicReference, head.Type())
	assert.Equal(t, plumbing.ReferenceName("refs/heads/master"), head.Target())
}

func TestInitializeIsIdempotent(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())
	require.NoError(t, d.Initialize())

	head, err := d.Ref(plumbing.HEAD)
	require.NoError(t, err)
	assert.Equal(t, plumbing.ReferenceName("refs/heads/master"), head.Target())
}

func TestSetRefThenRefRoundTrips(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	name := plumbing.ReferenceName("refs/heads/topic")
	hash := plumbing.NewHash("0000000000000000000000000000000000000001")
	require.NoError(t, d.SetRef(plumbing.NewHashReference(name, hash)))

	got, err := d.Ref(name)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hash, got.Hash())
}

func TestRefReturnsNilWithoutErrorWhenAbsent(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	got, err := d.Ref("refs/heads/does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemoveRefDeletesLooseFile(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	name := plumbing.ReferenceName("refs/heads/topic")
	require.NoError(t, d.SetRef(plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000002"))))
	require.NoError(t, d.RemoveRef(name))

	got, err := d.Ref(name)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPackedRefsRoundTrip(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	entries := []*plumbing.Reference{
		plumbing.NewHashReference("refs/heads/a", plumbing.NewHash("0000000000000000000000000000000000000003")),
		plumbing.NewHashReference("refs/heads/b", plumbing.NewHash("0000000000000000000000000000000000000004")),
	}
	require.NoError(t, d.RewritePackedRefs(entries))

	packed, err := d.PackedRefs()
	require.NoError(t, err)
	require.Len(t, packed, 2)
	assert.Equal(t, entries[0].Hash(), packed["refs/heads/a"].Hash())
	assert.Equal(t, entries[1].Hash(), packed["refs/heads/b"].Hash())
}

func TestRewritePackedRefsSortsEntriesAndOmitsPeeledClaim(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	require.NoError(t, d.RewritePackedRefs([]*plumbing.Reference{
		plumbing.NewHashReference("refs/heads/z", plumbing.NewHash("0000000000000000000000000000000000000005")),
		plumbing.NewHashReference("refs/heads/a", plumbing.NewHash("0000000000000000000000000000000000000006")),
	}))

	f, err := d.fs.Open(packedRefsPath)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# pack-refs with: sorted", lines[0])
	assert.NotContains(t, lines[0], "peeled")
	assert.Contains(t, lines[1], "refs/heads/a")
	assert.Contains(t, lines[2], "refs/heads/z")
}

func TestObjectWriterThenObjectRoundTrips(t *testing.T) {
	d := New(memfs.New())
	require.NoError(t, d.Initialize())

	content := []byte("loose object bytes")
	w, err := d.NewObjectWriter()
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	hashes, err := d.Objects()
	require.NoError(t, err)
	require.Len(t, hashes, 1)

	f, err := d.Object(hashes[0])
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

package filesystem

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

func newTestReferences(t *testing.T) *References {
	t.Helper()
	dot := dotgit.New(memfs.New())
	require.NoError(t, dot.Initialize())
	return NewReferences(dot)
}

func TestReferencesSetGetResolve(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/master")
	hash := plumbing.NewHash("0000000000000000000000000000000000000001")

	require.NoError(t, r.Set(plumbing.NewHashReference(name, hash)))

	got, err := r.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, hash, got.Hash())
}

func TestReferencesResolveFollowsSymbolicChain(t *testing.T) {
	r := newTestReferences(t)
	hash := plumbing.NewHash("0000000000000000000000000000000000000002")

	require.NoError(t, r.Set(plumbing.NewHashReference("refs/heads/master", hash)))
	require.NoError(t, r.Set(plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/master")))

	got, err := r.Resolve(plumbing.HEAD)
	require.NoError(t, err)
	assert.Equal(t, hash, got.Hash())
}

func TestReferencesResolveDetectsCycle(t *testing.T) {
	r := newTestReferences(t)
	require.NoError(t, r.Set(plumbing.NewSymbolicReference("refs/heads/a", "refs/heads/b")))
	require.NoError(t, r.Set(plumbing.NewSymbolicReference("refs/heads/b", "refs/heads/a")))

	_, err := r.Resolve("refs/heads/a")
	assert.ErrorIs(t, err, ErrMaxResolveRecursion)
}

func TestReferencesCheckAndSetRejectsStaleOld(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/master")
	original := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000003"))
	require.NoError(t, r.Set(original))

	stale := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000004"))
	next := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000005"))
	err := r.CheckAndSet(next, stale)
	assert.ErrorIs(t, err, ErrReferenceHasChanged)

	got, err := r.Get(name)
	require.NoError(t, err)
	assert.Equal(t, original.Hash(), got.Hash())
}

func TestReferencesCheckAndSetAcceptsMatchingOld(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/master")
	original := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000006"))
	require.NoError(t, r.Set(original))

	next := plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000007"))
	require.NoError(t, r.CheckAndSet(next, original))

	got, err := r.Get(name)
	require.NoError(t, err)
	assert.Equal(t, next.Hash(), got.Hash())
}

func TestReferencesRemove(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/doomed")
	require.NoError(t, r.Set(plumbing.NewHashReference(name, plumbing.NewHash("0000000000000000000000000000000000000008"))))

	require.NoError(t, r.Remove(name))
	_, err := r.Get(name)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

// TestReferencesLooseRefShadowsPackedEntry covers the packed-refs shadowing
// scenario: a name present in packed-refs is overwritten by a fresh loose
// ref, and Resolve must prefer the loose value.
func TestReferencesLooseRefShadowsPackedEntry(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/shadowed")
	packedHash := plumbing.NewHash("0000000000000000000000000000000000000009")
	freshHash := plumbing.NewHash("000000000000000000000000000000000000000a")

	require.NoError(t, r.dot.RewritePackedRefs([]*plumbing.Reference{
		plumbing.NewHashReference(name, packedHash),
	}))

	got, err := r.Get(name)
	require.NoError(t, err)
	assert.Equal(t, packedHash, got.Hash())

	require.NoError(t, r.Set(plumbing.NewHashReference(name, freshHash)))

	got, err = r.Get(name)
	require.NoError(t, err)
	assert.Equal(t, freshHash, got.Hash(), "a loose ref must shadow a packed-refs entry of the same name")

	packed, err := r.dot.PackedRefs()
	require.NoError(t, err)
	_, stillPacked := packed[name]
	assert.False(t, stillPacked, "setting a loose ref must rewrite packed-refs to drop the shadowed entry")
}

func TestReferencesRemoveDropsPackedEntryToo(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/packed-only")
	hash := plumbing.NewHash("000000000000000000000000000000000000000b")

	require.NoError(t, r.dot.RewritePackedRefs([]*plumbing.Reference{
		plumbing.NewHashReference(name, hash),
	}))

	require.NoError(t, r.Remove(name))

	_, err := r.Get(name)
	assert.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
}

func TestReferencesMem(t *testing.T) {
	r := newTestReferences(t)
	name := plumbing.ReferenceName("refs/heads/present")
	require.NoError(t, r.Set(plumbing.NewHashReference(name, plumbing.NewHash("000000000000000000000000000000000000000e"))))

	ok, err := r.Mem(name)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Mem("refs/heads/absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferencesNormalizeWalksInMemoryGraphWithoutDisk(t *testing.T) {
	r := newTestReferences(t)
	hash := plumbing.NewHash("000000000000000000000000000000000000000f")

	tip := plumbing.NewHashReference("refs/heads/master", hash)
	mid := plumbing.NewSymbolicReference("refs/heads/alias", "refs/heads/master")
	head := plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/alias")

	graph := map[plumbing.ReferenceName]*plumbing.Reference{
		tip.Name():  tip,
		mid.Name():  mid,
		head.Name(): head,
	}

	got, err := r.Normalize(graph, head)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
}

func TestReferencesNormalizeDetectsCycle(t *testing.T) {
	r := newTestReferences(t)
	a := plumbing.NewSymbolicReference("refs/heads/a", "refs/heads/b")
	b := plumbing.NewSymbolicReference("refs/heads/b", "refs/heads/a")
	graph := map[plumbing.ReferenceName]*plumbing.Reference{
		a.Name(): a,
		b.Name(): b,
	}

	_, err := r.Normalize(graph, a)
	assert.ErrorIs(t, err, ErrMaxResolveRecursion)
}

func TestReferencesGraphResolvesEveryChain(t *testing.T) {
	r := newTestReferences(t)
	hash := plumbing.NewHash("0000000000000000000000000000000000000010")
	require.NoError(t, r.Set(plumbing.NewHashReference("refs/heads/master", hash)))
	require.NoError(t, r.Set(plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/master")))

	graph, err := r.Graph()
	require.NoError(t, err)
	assert.Equal(t, hash, graph["refs/heads/master"])
	assert.Equal(t, hash, graph[plumbing.HEAD])
}

func TestReferencesCountLooseExcludesPacked(t *testing.T) {
	r := newTestReferences(t)
	require.NoError(t, r.dot.RewritePackedRefs([]*plumbing.Reference{
		plumbing.NewHashReference("refs/heads/packed", plumbing.NewHash("000000000000000000000000000000000000000c")),
	}))
	require.NoError(t, r.Set(plumbing.NewHashReference("refs/heads/loose", plumbing.NewHash("000000000000000000000000000000000000000d"))))

	n, err := r.CountLoose()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

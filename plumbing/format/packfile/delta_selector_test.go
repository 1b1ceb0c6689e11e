package packfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
)

func toPack(t plumbing.ObjectType, content []byte) *ObjectToPack {
	return NewObjectToPack(plumbing.NewMemoryObjectFrom(t, content), content)
}

func TestDeltaSelectorOrdersCommitsTagsTreesBlobs(t *testing.T) {
	s := NewDeltaSelector(0, 0)

	blob := toPack(plumbing.BlobObject, []byte("blob"))
	tree := toPack(plumbing.TreeObject, []byte("tree"))
	tag := toPack(plumbing.TagObject, []byte("tag"))
	commit := toPack(plumbing.CommitObject, []byte("commit"))

	ordered := s.order([]*ObjectToPack{blob, tree, tag, commit})
	require.Len(t, ordered, 4)
	assert.Equal(t, plumbing.CommitObject, ordered[0].Object.Type())
	assert.Equal(t, plumbing.TagObject, ordered[1].Object.Type())
	assert.Equal(t, plumbing.TreeObject, ordered[2].Object.Type())
	assert.Equal(t, plumbing.BlobObject, ordered[3].Object.Type())
}

func TestDeltaSelectorOrdersTreesLargestFirst(t *testing.T) {
	s := NewDeltaSelector(0, 0)

	small := toPack(plumbing.TreeObject, []byte("aa"))
	big := toPack(plumbing.TreeObject, []byte("aaaaaaaaaa"))
	mid := toPack(plumbing.TreeObject, []byte("aaaaa"))

	ordered := s.order([]*ObjectToPack{small, big, mid})
	require.Len(t, ordered, 3)
	assert.Same(t, big, ordered[0])
	assert.Same(t, mid, ordered[1])
	assert.Same(t, small, ordered[2])
}

func TestDeltaSelectorPlanDisabledWithZeroWindow(t *testing.T) {
	s := NewDeltaSelector(0, 0)

	a := toPack(plumbing.BlobObject, []byte("aaaaaaaaaa"))
	b := toPack(plumbing.BlobObject, []byte("aaaaaaaaab"))

	planned := s.Plan([]*ObjectToPack{a, b})
	for _, o := range planned {
		assert.False(t, o.IsDelta())
	}
}

func TestDeltaSelectorPlanPicksBestBaseWithinWindow(t *testing.T) {
	s := NewDeltaSelector(10, 10)

	base := []byte("the quick brown fox jumps over the lazy dog repeatedly\n")
	similar := append(append([]byte{}, base...), '!')
	unrelated := []byte("12345")

	a := toPack(plumbing.BlobObject, base)
	c := toPack(plumbing.BlobObject, unrelated)
	target := toPack(plumbing.BlobObject, similar)

	planned := s.Plan([]*ObjectToPack{a, c, target})

	var got *ObjectToPack
	for _, o := range planned {
		if o.Object.Hash() == target.Object.Hash() {
			got = o
		}
	}
	require.NotNil(t, got)
	require.True(t, got.IsDelta())
	assert.Equal(t, a.Object.Hash(), got.Base.Object.Hash())
	assert.Equal(t, 1, got.Depth)
}

func TestDeltaSelectorBestBaseSkipsCandidatesAtDepthCap(t *testing.T) {
	s := &DeltaSelector{Window: 10, Depth: 1}

	base := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	cand := toPack(plumbing.BlobObject, base)
	cand.Depth = 1 // already at the cap

	target := toPack(plumbing.BlobObject, append(append([]byte{}, base...), 'x'))

	best := s.bestBase(target, []*ObjectToPack{cand})
	assert.Nil(t, best)
}

func TestDeltaSelectorBestBaseSkipsWhenDeltaNotSmaller(t *testing.T) {
	s := &DeltaSelector{Window: 10, Depth: 10}

	base := toPack(plumbing.BlobObject, []byte("z"))
	target := toPack(plumbing.BlobObject, []byte("completely unrelated content of some length"))

	best := s.bestBase(target, []*ObjectToPack{base})
	assert.Nil(t, best)
}

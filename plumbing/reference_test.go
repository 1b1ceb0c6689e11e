package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHashReference(t *testing.T) {
	h := NewHash("ce013625030ba8dba906f756967f9e9ca394464a")
	r := NewHashReference("refs/heads/master", h)

	assert.Equal(t, HashReference, r.Type())
	assert.Equal(t, ReferenceName("refs/heads/master"), r.Name())
	assert.Equal(t, h, r.Hash())
	assert.Equal(t, ReferenceName(""), r.Target())
	assert.True(t, r.IsBranch())
}

func TestNewSymbolicReference(t *testing.T) {
	r := NewSymbolicReference(HEAD, "refs/heads/master")

	assert.Equal(t, SymbolicReference, r.Type())
	assert.Equal(t, HEAD, r.Name())
	assert.Equal(t, ReferenceName("refs/heads/master"), r.Target())
	assert.Equal(t, ZeroHash, r.Hash())
}

func TestNewReferenceFromStringsHash(t *testing.T) {
	r := NewReferenceFromStrings("refs/heads/master", "ce013625030ba8dba906f756967f9e9ca394464a\n")
	assert.Equal(t, HashReference, r.Type())
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", r.Hash().String())
}

func TestNewReferenceFromStringsSymbolic(t *testing.T) {
	r := NewReferenceFromStrings("HEAD", "ref: refs/heads/master\n")
	assert.Equal(t, SymbolicReference, r.Type())
	assert.Equal(t, ReferenceName("refs/heads/master"), r.Target())
}

func TestReferenceStrings(t *testing.T) {
	h := NewHash("ce013625030ba8dba906f756967f9e9ca394464a")
	hashRef := NewHashReference("refs/heads/master", h)
	assert.Equal(t, [2]string{"refs/heads/master", h.String()}, hashRef.Strings())

	symRef := NewSymbolicReference(HEAD, "refs/heads/master")
	assert.Equal(t, [2]string{"HEAD", "ref: refs/heads/master"}, symRef.Strings())
}

func TestReferenceNameKinds(t *testing.T) {
	assert.True(t, ReferenceName("refs/heads/master").IsBranch())
	assert.True(t, ReferenceName("refs/tags/v1.0.0").IsTag())
	assert.True(t, ReferenceName("refs/remotes/origin/master").IsRemote())
	assert.True(t, ReferenceName("refs/notes/commits").IsNote())
	assert.False(t, ReferenceName("refs/heads/master").IsTag())
}

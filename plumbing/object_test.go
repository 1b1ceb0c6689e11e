package plumbing

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectTypeString(t *testing.T) {
	assert.Equal(t, "commit", CommitObject.String())
	assert.Equal(t, "tree", TreeObject.String())
	assert.Equal(t, "blob", BlobObject.String())
	assert.Equal(t, "tag", TagObject.String())
	assert.Equal(t, "ofs-delta", OFSDeltaObject.String())
	assert.Equal(t, "ref-delta", REFDeltaObject.String())
	assert.Equal(t, "any", AnyObject.String())
	assert.Equal(t, "unknown", InvalidObject.String())
}

func TestObjectTypeValid(t *testing.T) {
	assert.True(t, CommitObject.Valid())
	assert.True(t, TreeObject.Valid())
	assert.True(t, BlobObject.Valid())
	assert.True(t, TagObject.Valid())
	assert.False(t, InvalidObject.Valid())
	assert.False(t, OFSDeltaObject.Valid())
}

func TestObjectTypeIsDelta(t *testing.T) {
	assert.True(t, OFSDeltaObject.IsDelta())
	assert.True(t, REFDeltaObject.IsDelta())
	assert.False(t, BlobObject.IsDelta())
}

func TestParseObjectType(t *testing.T) {
	ot, err := ParseObjectType("blob")
	require.NoError(t, err)
	assert.Equal(t, BlobObject, ot)

	_, err = ParseObjectType("bogus")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestMemoryObjectRoundTrip(t *testing.T) {
	o := NewMemoryObject()
	o.SetType(BlobObject)

	w, err := o.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	o.SetSize(6)

	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", o.Hash().String())

	r, err := o.Reader()
	require.NoError(t, err)
	defer r.Close()
	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestNewMemoryObjectFrom(t *testing.T) {
	o := NewMemoryObjectFrom(BlobObject, []byte("hello\n"))
	assert.Equal(t, BlobObject, o.Type())
	assert.Equal(t, int64(6), o.Size())
	assert.Equal(t, "hello\n", string(o.Content()))
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", o.Hash().String())
}

func TestMemoryObjectWriterResetsContent(t *testing.T) {
	o := NewMemoryObjectFrom(BlobObject, []byte("first"))

	w, err := o.Writer()
	require.NoError(t, err)
	_, err = w.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	o.SetSize(6)

	assert.Equal(t, "second", string(o.Content()))
}

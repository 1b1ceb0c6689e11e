package packfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
)

func buildSinglePack(t *testing.T, content []byte) []byte {
	t.Helper()

	obj := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, content)
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	_, err := enc.Encode([]*ObjectToPack{NewObjectToPack(obj, content)})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestScannerHeaderAndSingleEntry(t *testing.T) {
	content := []byte("hello\n")
	data := buildSinglePack(t, content)

	s := NewScanner(bytes.NewReader(data))
	version, count, err := s.Header()
	require.NoError(t, err)
	assert.Equal(t, VersionSupported, version)
	assert.Equal(t, uint32(1), count)

	oh, err := s.NextObjectHeader()
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, oh.Type)
	assert.Equal(t, int64(len(content)), oh.Size)
	assert.Equal(t, int64(0), oh.Offset)

	var out bytes.Buffer
	n, _, err := s.NextObject(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, out.Bytes())

	sum, err := s.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, plumbing.ZeroHash, sum)
}

func TestScannerHeaderIsIdempotent(t *testing.T) {
	data := buildSinglePack(t, []byte("x"))
	s := NewScanner(bytes.NewReader(data))

	v1, c1, err := s.Header()
	require.NoError(t, err)
	v2, c2, err := s.Header()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, c1, c2)
}

func TestScannerRejectsBadSignature(t *testing.T) {
	s := NewScanner(bytes.NewReader([]byte("NOPE12345678")))
	_, _, err := s.Header()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestScannerRejectsEmptyStream(t *testing.T) {
	s := NewScanner(bytes.NewReader(nil))
	_, _, err := s.Header()
	assert.ErrorIs(t, err, ErrEmptyPackfile)
}

func TestScannerRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(signature)
	buf.Write([]byte{0, 0, 0, 99})
	buf.Write([]byte{0, 0, 0, 1})

	s := NewScanner(&buf)
	_, _, err := s.Header()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestScannerNextObjectHeaderDiscardsUnreadBody(t *testing.T) {
	objA := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("aaaa"))
	objB := plumbing.NewMemoryObjectFrom(plumbing.BlobObject, []byte("bbbb"))

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	_, err := enc.Encode([]*ObjectToPack{
		NewObjectToPack(objA, []byte("aaaa")),
		NewObjectToPack(objB, []byte("bbbb")),
	})
	require.NoError(t, err)

	s := NewScanner(bytes.NewReader(buf.Bytes()))
	_, _, err = s.Header()
	require.NoError(t, err)

	_, err = s.NextObjectHeader()
	require.NoError(t, err)

	// Never consumed objA's body; asking for the next header should
	// transparently discard it first.
	oh2, err := s.NextObjectHeader()
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, oh2.Type)

	var out bytes.Buffer
	_, _, err = s.NextObject(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbb"), out.Bytes())
}

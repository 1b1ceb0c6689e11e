package idxfile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/plumbing"
)

func buildTestIndex(t *testing.T) *MemoryIndex {
	t.Helper()

	w := &Writer{}
	w.Add(plumbing.NewHash("000000000000000000000000000000000000000a"), 12, 0xaaaaaaaa)
	w.Add(plumbing.NewHash("000000000000000000000000000000000000000b"), 34, 0xbbbbbbbb)
	w.Add(plumbing.NewHash("000000000000000000000000000000000000000c"), 3000000000, 0xcccccccc)
	require.NoError(t, w.OnFooter(plumbing.NewHash("0000000000000000000000000000000000000001")))

	idx, err := w.CreateIndex()
	require.NoError(t, err)
	return idx
}

func TestWriterCreateIndexAndLookup(t *testing.T) {
	idx := buildTestIndex(t)

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	off, err := idx.FindOffset(plumbing.NewHash("000000000000000000000000000000000000000a"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), off)

	// beyond the 2GiB boundary, forces the Offset64 overflow table
	off, err = idx.FindOffset(plumbing.NewHash("000000000000000000000000000000000000000c"))
	require.NoError(t, err)
	assert.Equal(t, int64(3000000000), off)

	crc, err := idx.FindCRC32(plumbing.NewHash("000000000000000000000000000000000000000b"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0xbbbbbbbb), crc)

	_, err = idx.FindOffset(plumbing.NewHash("0000000000000000000000000000000000000fff"))
	assert.ErrorIs(t, err, plumbing.ErrObjectNotFound)
}

func TestMemoryIndexFindHash(t *testing.T) {
	idx := buildTestIndex(t)

	h, err := idx.FindHash(34)
	require.NoError(t, err)
	assert.Equal(t, plumbing.NewHash("000000000000000000000000000000000000000b"), h)

	_, err = idx.FindHash(999)
	assert.ErrorIs(t, err, plumbing.ErrObjectNotFound)
}

func TestMemoryIndexEntries(t *testing.T) {
	idx := buildTestIndex(t)

	iter, err := idx.Entries()
	require.NoError(t, err)

	var hashes []plumbing.Hash
	for {
		e, err := iter.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		hashes = append(hashes, e.Hash)
	}
	require.NoError(t, iter.Close())

	require.Len(t, hashes, 3)
	assert.Equal(t, plumbing.NewHash("000000000000000000000000000000000000000a"), hashes[0])
	assert.Equal(t, plumbing.NewHash("000000000000000000000000000000000000000c"), hashes[2])
}

func TestMemoryIndexEntriesByOffset(t *testing.T) {
	idx := buildTestIndex(t)

	iter, err := idx.EntriesByOffset()
	require.NoError(t, err)

	var offsets []uint64
	for {
		e, err := iter.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		offsets = append(offsets, e.Offset)
	}

	require.Len(t, offsets, 3)
	assert.True(t, offsets[0] < offsets[1] && offsets[1] < offsets[2])
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	idx := buildTestIndex(t)

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	_, err := enc.Encode(idx)
	require.NoError(t, err)

	decoded := &MemoryIndex{}
	dec := NewDecoder(&buf)
	require.NoError(t, dec.Decode(decoded))

	assert.Equal(t, idx.Fanout, decoded.Fanout)
	assert.Equal(t, idx.Names, decoded.Names)
	assert.Equal(t, idx.CRC32, decoded.CRC32)
	assert.Equal(t, idx.Offset32, decoded.Offset32)
	assert.Equal(t, idx.Offset64, decoded.Offset64)
	assert.Equal(t, idx.PackfileChecksum, decoded.PackfileChecksum)
	assert.NotEqual(t, plumbing.ZeroHash, decoded.IdxChecksum)

	off, err := decoded.FindOffset(plumbing.NewHash("000000000000000000000000000000000000000c"))
	require.NoError(t, err)
	assert.Equal(t, int64(3000000000), off)
}

func TestDecoderRejectsBadMagic(t *testing.T) {
	dec := NewDecoder(bytes.NewReader([]byte("not an index at all, way too short")))
	err := dec.Decode(&MemoryIndex{})
	assert.ErrorIs(t, err, ErrInvalidIdxFile)
}

package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasherBlobHash(t *testing.T) {
	content := []byte("hello\n")
	h := NewHasher(BlobObject, int64(len(content)))
	h.Write(content)

	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", h.Sum().String())
}

func TestHasherReset(t *testing.T) {
	h := NewHasher(BlobObject, 5)
	h.Write([]byte("hello"))
	first := h.Sum()

	h.Reset(BlobObject, 6)
	h.Write([]byte("hello\n"))
	second := h.Sum()

	assert.NotEqual(t, first, second)
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", second.String())
}

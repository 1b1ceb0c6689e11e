package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitcas/gitcas/plumbing"
)

func TestKeyedLRUAddGet(t *testing.T) {
	c := NewKeyedLRU(5)
	c.Add("a", 1)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestKeyedLRUMiss(t *testing.T) {
	c := NewKeyedLRU(5)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestKeyedLRUEviction(t *testing.T) {
	c := NewKeyedLRU(2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted once the cache exceeded its capacity")

	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestKeyedLRURemove(t *testing.T) {
	c := NewKeyedLRU(5)
	c.Add("a", 1)
	c.Remove("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestKeyedLRULen(t *testing.T) {
	c := NewKeyedLRU(5)
	assert.Equal(t, 0, c.Len())
	c.Add("a", 1)
	c.Add("b", 2)
	assert.Equal(t, 2, c.Len())
}

func TestKeyedLRUClear(t *testing.T) {
	c := NewKeyedLRU(5)
	c.Add("a", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestNewKeyedLRUDefault(t *testing.T) {
	c := NewKeyedLRUDefault()
	for i := 0; i < DefaultLRUSize; i++ {
		c.Add(i, i)
	}
	assert.Equal(t, DefaultLRUSize, c.Len())
}

func TestOffsetKeyAsMapKey(t *testing.T) {
	pack := plumbing.NewHash("ce013625030ba8dba906f756967f9e9ca394464")
	c := NewKeyedLRU(5)

	k := OffsetKey{Pack: pack, Offset: 128}
	c.Add(k, "resolved-object")

	v, ok := c.Get(OffsetKey{Pack: pack, Offset: 128})
	assert.True(t, ok)
	assert.Equal(t, "resolved-object", v)
}

package cache

import (
	"container/list"
	"sync"

	"github.com/gitcas/gitcas/plumbing"
)

// ObjectLRU implements Object as a size-weighted LRU: every Put/Get moves
// the touched entry to the front of ll, and Put evicts from the back until
// the running actualSize fits within MaxSize. Capacity is expressed in
// bytes rather than a fixed entry count.
type ObjectLRU struct {
	MaxSize    FileSize
	actualSize FileSize

	ll    *list.List
	cache map[plumbing.Hash]*list.Element
	mu    sync.Mutex
}

var _ Object = (*ObjectLRU)(nil)

type objectEntry struct {
	hash plumbing.Hash
	obj  plumbing.EncodedObject
}

// NewObjectLRU returns an ObjectLRU bounded at maxSize bytes.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{MaxSize: maxSize}
}

// NewObjectLRUDefault returns an ObjectLRU bounded at DefaultMaxSize.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

// Put inserts or refreshes o, evicting the least-recently-used entries if
// necessary to stay within MaxSize. An object larger than MaxSize is simply
// not cached (the cache clears itself of everything else first, then gives
// up once it is empty and the object still doesn't fit).
func (c *ObjectLRU) Put(o plumbing.EncodedObject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		c.actualSize = 0
		c.cache = make(map[plumbing.Hash]*list.Element)
		c.ll = list.New()
	}

	h := o.Hash()
	if ee, ok := c.cache[h]; ok {
		c.ll.MoveToFront(ee)
		old := ee.Value.(*objectEntry)
		c.actualSize -= FileSize(old.obj.Size())
		ee.Value = &objectEntry{h, o}
		c.actualSize += FileSize(o.Size())
	} else {
		ee := c.ll.PushFront(&objectEntry{h, o})
		c.cache[h] = ee
		c.actualSize += FileSize(o.Size())
	}

	for c.actualSize > c.MaxSize && c.ll.Len() != 0 {
		c.removeOldest()
	}
}

// Get returns the cached object for h, if present, promoting it to
// most-recently-used.
func (c *ObjectLRU) Get(h plumbing.Hash) (plumbing.EncodedObject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		return nil, false
	}

	ee, ok := c.cache[h]
	if !ok {
		return nil, false
	}

	c.ll.MoveToFront(ee)
	return ee.Value.(*objectEntry).obj, true
}

// Clear drops every cached object.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = nil
	c.cache = nil
	c.actualSize = 0
}

func (c *ObjectLRU) removeOldest() {
	ee := c.ll.Back()
	if ee == nil {
		return
	}

	c.ll.Remove(ee)
	e := ee.Value.(*objectEntry)
	c.actualSize -= FileSize(e.obj.Size())
	delete(c.cache, e.hash)
}

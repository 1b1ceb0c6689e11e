package packfile

import (
	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/gitcas/gitcas/plumbing"
)

// ObjectToPack is one object queued for a pack stream, plus the delta base
// the selector chose for it, if any. An ObjectToPack with a nil Base is
// emitted as a raw (inflate-then-deflate) entry.
type ObjectToPack struct {
	Object plumbing.EncodedObject
	Base   *ObjectToPack
	Depth  int

	// Delta holds the encoded COPY/INSERT instruction stream once the
	// selector has picked a base for this object. Empty when Base is nil.
	Delta []byte

	content []byte // object payload, buffered once so candidates can be diffed repeatedly
}

func newObjectToPack(o plumbing.EncodedObject, content []byte) *ObjectToPack {
	return &ObjectToPack{Object: o, content: content}
}

// NewObjectToPack queues o, with its already-inflated content, for
// planning by a DeltaSelector. Exported for callers (e.g. a storage
// engine's repack routine) that build the candidate set themselves.
func NewObjectToPack(o plumbing.EncodedObject, content []byte) *ObjectToPack {
	return newObjectToPack(o, content)
}

// IsDelta reports whether this entry will be written as a delta.
func (o *ObjectToPack) IsDelta() bool { return o.Base != nil }

// DeltaSelector groups a set of objects into the order a pack stream will
// emit them in and, within a sliding window W bounded by depth D, picks a
// same-kind base for each object when doing so shrinks the entry.
type DeltaSelector struct {
	Window int
	Depth  int
}

// NewDeltaSelector returns a DeltaSelector with the given window size and
// depth cap. A window or depth of 0 disables delta search entirely; every
// object is emitted raw.
func NewDeltaSelector(window, depth int) *DeltaSelector {
	return &DeltaSelector{Window: window, Depth: depth}
}

// Plan orders objs (commits, then tags, then trees largest-to-smallest,
// then blobs) and assigns each a delta base from its kind's sliding
// window, when one exists that shrinks the entry.
func (s *DeltaSelector) Plan(objs []*ObjectToPack) []*ObjectToPack {
	ordered := s.order(objs)

	if s.Window <= 0 || s.Depth <= 0 {
		return ordered
	}

	windows := map[plumbing.ObjectType][]*ObjectToPack{}
	for _, o := range ordered {
		kind := o.Object.Type()
		win := windows[kind]

		if best := s.bestBase(o, win); best != nil {
			o.Base = best
			o.Depth = best.Depth + 1
			o.Delta = DiffDelta(best.content, o.content)
		}

		win = append(win, o)
		if len(win) > s.Window {
			win = win[len(win)-s.Window:]
		}
		windows[kind] = win
	}

	return ordered
}

// bestBase scans win (objects already planned, most recent last) for the
// candidate whose delta against o is smallest, skipping any candidate at
// or past the depth cap. Ties are broken by smallest base size, then by
// earliest insertion index (win is insertion-ordered, so the first match
// with the minimum size wins).
func (s *DeltaSelector) bestBase(o *ObjectToPack, win []*ObjectToPack) *ObjectToPack {
	var (
		best     *ObjectToPack
		bestSize = -1
	)

	rawSize := len(o.content)

	for _, cand := range win {
		if cand.Depth >= s.Depth {
			continue
		}

		delta := DiffDelta(cand.content, o.content)
		if len(delta) >= rawSize {
			continue
		}

		if bestSize < 0 || len(delta) < bestSize ||
			(len(delta) == bestSize && len(cand.content) < len(best.content)) {
			best = cand
			bestSize = len(delta)
		}
	}

	return best
}

// order groups objects commits, tags, trees, blobs; trees are further
// sorted largest-to-smallest, since a bigger tree is more likely to serve
// as a good delta base for a smaller, related one within its window.
func (s *DeltaSelector) order(objs []*ObjectToPack) []*ObjectToPack {
	buckets := map[plumbing.ObjectType][]*ObjectToPack{}
	for _, o := range objs {
		t := o.Object.Type()
		buckets[t] = append(buckets[t], o)
	}

	sortBySizeDesc(buckets[plumbing.TreeObject])

	out := make([]*ObjectToPack, 0, len(objs))
	for _, kind := range []plumbing.ObjectType{
		plumbing.CommitObject, plumbing.TagObject, plumbing.TreeObject, plumbing.BlobObject,
	} {
		out = append(out, buckets[kind]...)
	}
	return out
}

// sortBySizeDesc orders objs by payload size, largest first, using a
// binary max-heap.
func sortBySizeDesc(objs []*ObjectToPack) {
	if len(objs) < 2 {
		return
	}

	h := binaryheap.NewWith(func(a, b interface{}) int {
		oa, ob := a.(*ObjectToPack), b.(*ObjectToPack)
		switch {
		case len(oa.content) > len(ob.content):
			return -1
		case len(oa.content) < len(ob.content):
			return 1
		default:
			return 0
		}
	})

	for _, o := range objs {
		h.Push(o)
	}
	for i := range objs {
		v, _ := h.Pop()
		objs[i] = v.(*ObjectToPack)
	}
}

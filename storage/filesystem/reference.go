package filesystem

import (
	"errors"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

// maxSymbolicDepth bounds symbolic reference resolution: a well-formed
// repository never chains HEAD -> ref -> ref more than a couple of hops
// deep, so a longer chain is treated as a cycle.
const maxSymbolicDepth = 10

// ErrMaxResolveRecursion is returned by Resolve when a symbolic reference
// chain exceeds maxSymbolicDepth.
var ErrMaxResolveRecursion = errors.New("max. reference recursion reached")

// ErrReferenceHasChanged is returned by CheckAndSet when the reference
// named by ref no longer resolves to the expected old value.
var ErrReferenceHasChanged = errors.New("reference has changed concurrently")

// References is the reference store: per-file refs under refs/ and HEAD,
// layered underneath a packed-refs fallback, with symbolic references
// resolved on read.
type References struct {
	dot *dotgit.DotGit
}

// NewReferences returns a reference store rooted at dot.
func NewReferences(dot *dotgit.DotGit) *References {
	return &References{dot: dot}
}

// Get returns the raw (possibly symbolic) reference named name, without
// following it. Packed-refs is only consulted when no per-file reference
// exists, matching git's own precedence.
func (r *References) Get(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := r.dot.Ref(name)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	packed, err := r.dot.PackedRefs()
	if err != nil {
		return nil, err
	}
	if ref, ok := packed[name]; ok {
		return ref, nil
	}

	return nil, plumbing.ErrReferenceNotFound
}

// Mem reports whether name exists, loose or packed, without resolving it.
func (r *References) Mem(name plumbing.ReferenceName) (bool, error) {
	_, err := r.Get(name)
	switch err {
	case nil:
		return true, nil
	case plumbing.ErrReferenceNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Resolve follows name through up to maxSymbolicDepth symbolic hops and
// returns the hash reference at the end of the chain.
func (r *References) Resolve(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	for depth := 0; ref.Type() == plumbing.SymbolicReference; depth++ {
		if depth >= maxSymbolicDepth {
			return nil, ErrMaxResolveRecursion
		}
		ref, err = r.Get(ref.Target())
		if err != nil {
			return nil, err
		}
	}

	return ref, nil
}

// Set writes ref as a per-file reference, creating or overwriting it
// unconditionally. If packed-refs already carries an entry for the same
// name, it is rewritten without that entry: the fresh per-file ref now
// shadows it, and packed-refs must reflect every mutation that returns
// success.
func (r *References) Set(ref *plumbing.Reference) error {
	if err := r.dot.SetRef(ref); err != nil {
		return err
	}
	return r.unpack(ref.Name())
}

// CheckAndSet writes ref only if the reference currently named by ref.Name
// resolves to old, or old is nil and the name is currently absent. This is
// the compare-and-swap a push implementation needs to avoid clobbering a
// concurrent update.
func (r *References) CheckAndSet(ref, old *plumbing.Reference) error {
	current, err := r.Get(ref.Name())
	if err != nil && err != plumbing.ErrReferenceNotFound {
		return err
	}

	switch {
	case current == nil && old == nil:
	case current == nil || old == nil:
		return ErrReferenceHasChanged
	case current.Hash() != old.Hash() || current.Target() != old.Target():
		return ErrReferenceHasChanged
	}

	return r.Set(ref)
}

// Remove deletes the per-file reference named name and, if packed-refs
// also carries an entry for it, rewrites packed-refs without that entry —
// removal must make name resolve to NotFound regardless of whether it was
// loose or packed.
func (r *References) Remove(name plumbing.ReferenceName) error {
	if err := r.dot.RemoveRef(name); err != nil {
		return err
	}
	return r.unpack(name)
}

// unpack rewrites packed-refs to drop any entry named name, leaving every
// other entry untouched. A no-op when name has no packed-refs entry.
func (r *References) unpack(name plumbing.ReferenceName) error {
	packed, err := r.dot.PackedRefs()
	if err != nil {
		return err
	}
	if _, ok := packed[name]; !ok {
		return nil
	}

	delete(packed, name)
	remaining := make([]*plumbing.Reference, 0, len(packed))
	for _, ref := range packed {
		remaining = append(remaining, ref)
	}
	return r.dot.RewritePackedRefs(remaining)
}

// List returns every reference name known to the store: HEAD, loose refs
// under refs/, and packed-refs, each exactly once (a loose ref shadows a
// packed-refs entry of the same name).
func (r *References) List() ([]*plumbing.Reference, error) {
	refs, err := r.dot.Refs()
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.ReferenceName]bool, len(refs))
	out := make([]*plumbing.Reference, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.Name()] {
			continue
		}
		seen[ref.Name()] = true
		out = append(out, ref)
	}
	return out, nil
}

// CountLoose reports how many per-file (non-packed) references exist under
// refs/; HEAD is not counted.
func (r *References) CountLoose() (int, error) {
	refs, err := r.dot.Refs()
	if err != nil {
		return 0, err
	}

	packed, err := r.dot.PackedRefs()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD {
			continue
		}
		if _, isPacked := packed[ref.Name()]; !isPacked {
			count++
		}
	}
	return count, nil
}

// Normalize follows ref through graph — a name -> reference map built by a
// prior List/Graph call — until it reaches a hash reference, bounding the
// walk at maxSymbolicDepth. Unlike Resolve, every hop is a map lookup
// instead of a dotgit read, so a caller holding a graph can follow any
// number of chains through it without touching disk again.
func (r *References) Normalize(graph map[plumbing.ReferenceName]*plumbing.Reference, ref *plumbing.Reference) (plumbing.Hash, error) {
	for depth := 0; ref.Type() == plumbing.SymbolicReference; depth++ {
		if depth >= maxSymbolicDepth {
			return plumbing.ZeroHash, ErrMaxResolveRecursion
		}
		next, ok := graph[ref.Target()]
		if !ok {
			return plumbing.ZeroHash, plumbing.ErrReferenceNotFound
		}
		ref = next
	}
	return ref.Hash(), nil
}

// Graph resolves every reference in the store down to its final hash,
// bounding each chain at maxSymbolicDepth, and returns the resulting
// name -> hash map. A chain that doesn't resolve within the bound is left
// out of the result rather than failing the whole call.
func (r *References) Graph() (map[plumbing.ReferenceName]plumbing.Hash, error) {
	refs, err := r.List()
	if err != nil {
		return nil, err
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	out := make(map[plumbing.ReferenceName]plumbing.Hash, len(refs))
	for _, ref := range refs {
		hash, err := r.Normalize(byName, ref)
		if err != nil {
			continue
		}
		out[ref.Name()] = hash
	}
	return out, nil
}

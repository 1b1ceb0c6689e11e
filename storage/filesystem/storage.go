package filesystem

import (
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/gitcas/gitcas/internal/arena"
	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/cache"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
	"github.com/gitcas/gitcas/plumbing/format/packfile"
	"github.com/gitcas/gitcas/plumbing/storer"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

// Storage is the top-level façade: it composes the loose store, the pack
// engine, ingestion and the reference store behind the storer.Storer
// surface, routing object reads pack-first then loose (packs are usually
// the denser, already-delta-compressed representation) and interposing the
// size-weighted "values" cache ahead of both.
type Storage struct {
	fs  billy.Filesystem
	dot *dotgit.DotGit

	loose  *Loose
	packs  *Packs
	ingest *Ingest
	refs   *References
	arena  *arena.Arena

	// values caches fully decoded objects, size-weighted, ahead of both
	// backends. objects memoizes intermediate delta bases during pack
	// reconstruction, keyed by (pack, offset); it is shared by every
	// packfile.Decoder the pack engine builds (see Packs.open/Register).
	values  *cache.ObjectLRU
	objects *cache.KeyedLRU
}

var (
	_ storer.Storer         = (*Storage)(nil)
	_ storer.PackfileWriter = (*Storage)(nil)
)

// NewStorage returns a Storage rooted at fs, initializing the repository
// directory if it is fresh and loading any packs already on disk.
func NewStorage(fs billy.Filesystem) (*Storage, error) {
	dot := dotgit.New(fs)
	if err := dot.Initialize(); err != nil {
		return nil, err
	}

	loose := NewLoose(dot)
	arenaPool := arena.New()
	objects := cache.NewKeyedLRUDefault()
	packs := NewPacks(dot, loose, arenaPool, objects)
	if err := packs.Load(); err != nil {
		return nil, err
	}

	s := &Storage{
		fs:      fs,
		dot:     dot,
		loose:   loose,
		packs:   packs,
		ingest:  NewIngest(dot, packs),
		refs:    NewReferences(dot),
		arena:   arenaPool,
		values:  cache.NewObjectLRUDefault(),
		objects: objects,
	}
	return s, nil
}

// Ingest exposes the ingestion engine for callers that need the
// (pack-digest, object-count) result directly, e.g. a transport layer
// receiving a push. Storage.PackfileWriter serves storer.PackfileWriter
// callers that only need the io.WriteCloser shape.
func (s *Storage) Ingest() *Ingest { return s.ingest }

// Repack rebuilds the whole object graph into a single new pack, planned
// by a DeltaSelector with the given window and depth, then retires every
// pack and loose object it absorbed. It is idempotent: a repository
// already reduced to one pack with no loose objects is left untouched and
// Repack returns that pack's existing digest.
func (s *Storage) Repack(window, depth int) (plumbing.Hash, error) {
	looseHashes, err := s.loose.List()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	packHashes, err := s.packs.List()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	existingPacks, err := s.dot.ObjectPacks()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(looseHashes) == 0 && len(existingPacks) == 1 {
		return existingPacks[0], nil
	}

	seen := make(map[plumbing.Hash]bool, len(looseHashes)+len(packHashes))
	var all []plumbing.Hash
	for _, h := range append(append([]plumbing.Hash{}, looseHashes...), packHashes...) {
		if !seen[h] {
			seen[h] = true
			all = append(all, h)
		}
	}

	objs := make([]*packfile.ObjectToPack, 0, len(all))
	for _, h := range all {
		o, err := s.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		r, err := o.Reader()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		content := make([]byte, o.Size())
		if _, err := io.ReadFull(r, content); err != nil {
			_ = r.Close()
			return plumbing.ZeroHash, err
		}
		_ = r.Close()
		objs = append(objs, packfile.NewObjectToPack(o, content))
	}

	planned := packfile.NewDeltaSelector(window, depth).Plan(objs)

	pw, err := s.dot.NewObjectPack()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var newDigest plumbing.Hash
	pw.Notify = func(h plumbing.Hash, idx *idxfile.MemoryIndex) {
		newDigest = h
		_ = s.packs.Register(h, idx)
	}

	if _, err := packfile.NewEncoder(pw).Encode(planned); err != nil {
		_ = pw.Close()
		return plumbing.ZeroHash, err
	}
	if err := pw.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, h := range existingPacks {
		if h != newDigest {
			if err := s.packs.Remove(h); err != nil {
				return newDigest, err
			}
		}
	}
	for _, h := range looseHashes {
		if err := s.dot.RemoveLooseObject(h); err != nil {
			return newDigest, err
		}
	}

	s.ClearCaches()
	return newDigest, nil
}

// ClearCaches drops every cached decoded object and delta-base entry,
// without touching anything on disk.
func (s *Storage) ClearCaches() {
	s.values.Clear()
	s.objects.Clear()
}

// Reset reloads the pack engine from disk and clears every cache, used by
// a caller that knows the repository directory changed out from under this
// Storage (e.g. a concurrent process published new packs).
func (s *Storage) Reset() error {
	s.ClearCaches()
	return s.packs.Load()
}

// NewEncodedObject returns an empty, detached object ready to be filled in
// and handed to SetEncodedObject.
func (s *Storage) NewEncodedObject() plumbing.EncodedObject {
	return plumbing.NewMemoryObject()
}

// SetEncodedObject writes o as a loose object and returns its digest.
func (s *Storage) SetEncodedObject(o plumbing.EncodedObject) (plumbing.Hash, error) {
	return s.loose.Set(o)
}

// EncodedObject returns the object named h, trying the values cache, then
// every open pack, then the loose store.
func (s *Storage) EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error) {
	if o, ok := s.values.Get(h); ok {
		if t != plumbing.AnyObject && o.Type() != t {
			return nil, plumbing.ErrObjectNotFound
		}
		return o, nil
	}

	o, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if t != plumbing.AnyObject && o.Type() != t {
		return nil, plumbing.ErrObjectNotFound
	}

	s.values.Put(o)
	return o, nil
}

func (s *Storage) lookup(h plumbing.Hash) (plumbing.EncodedObject, error) {
	if ok, err := s.packs.Has(h); err != nil {
		return nil, err
	} else if ok {
		return s.packs.Get(h)
	}

	if ok, err := s.loose.Has(h); err != nil {
		return nil, err
	} else if ok {
		return s.loose.Get(h)
	}

	return nil, plumbing.ErrObjectNotFound
}

// HasEncodedObject reports whether h is present, in either backend.
func (s *Storage) HasEncodedObject(h plumbing.Hash) error {
	if ok, err := s.packs.Has(h); err != nil {
		return err
	} else if ok {
		return nil
	}
	if ok, err := s.loose.Has(h); err != nil {
		return err
	} else if ok {
		return nil
	}
	return plumbing.ErrObjectNotFound
}

// EncodedObjectSize returns h's inflated payload size. For a loose object
// this never inflates the body. A packed object, delta or not, is fetched
// in full through EncodedObject to learn its size; its entry header is not
// read on its own.
func (s *Storage) EncodedObjectSize(h plumbing.Hash) (int64, error) {
	if ok, err := s.loose.Has(h); err != nil {
		return 0, err
	} else if ok {
		return s.loose.Size(h)
	}

	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return 0, err
	}
	return o.Size(), nil
}

// IterEncodedObjects returns an iterator over every object of kind t (or
// every object, for plumbing.AnyObject).
func (s *Storage) IterEncodedObjects(t plumbing.ObjectType) (storer.EncodedObjectIter, error) {
	looseHashes, err := s.loose.List()
	if err != nil {
		return nil, err
	}
	packHashes, err := s.packs.List()
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]bool, len(looseHashes)+len(packHashes))
	var objs []plumbing.EncodedObject
	for _, h := range append(append([]plumbing.Hash{}, looseHashes...), packHashes...) {
		if seen[h] {
			continue
		}
		seen[h] = true

		o, err := s.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}
		if t == plumbing.AnyObject || o.Type() == t {
			objs = append(objs, o)
		}
	}

	return &objectSliceIter{objs: objs}, nil
}

// SetReference writes ref unconditionally.
func (s *Storage) SetReference(ref *plumbing.Reference) error {
	return s.refs.Set(ref)
}

// CheckAndSetReference writes ref only if the reference it names currently
// resolves to old.
func (s *Storage) CheckAndSetReference(ref, old *plumbing.Reference) error {
	return s.refs.CheckAndSet(ref, old)
}

// Reference returns the fully resolved reference named name.
func (s *Storage) Reference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	return s.refs.Resolve(name)
}

// HasReference reports whether name exists, loose or packed, without
// resolving it.
func (s *Storage) HasReference(name plumbing.ReferenceName) (bool, error) {
	return s.refs.Mem(name)
}

// RemoveReference deletes the per-file reference named name.
func (s *Storage) RemoveReference(name plumbing.ReferenceName) error {
	return s.refs.Remove(name)
}

// IterReferences returns an iterator over every known reference.
func (s *Storage) IterReferences() (storer.ReferenceIter, error) {
	refs, err := s.refs.List()
	if err != nil {
		return nil, err
	}
	return &referenceSliceIter{refs: refs}, nil
}

// CountLooseRefs reports how many per-file references exist under refs/.
func (s *Storage) CountLooseRefs() (int, error) {
	return s.refs.CountLoose()
}

// PackfileWriter returns a writer that ingests a full pack stream directly,
// registering the result with the pack engine once it is published.
func (s *Storage) PackfileWriter() (storer.WriteCommitCloser, error) {
	pw, err := s.dot.NewObjectPack()
	if err != nil {
		return nil, err
	}
	pw.Notify = func(h plumbing.Hash, idx *idxfile.MemoryIndex) {
		_ = s.packs.Register(h, idx)
	}
	return pw, nil
}

type objectSliceIter struct {
	objs []plumbing.EncodedObject
	pos  int
}

func (it *objectSliceIter) Next() (plumbing.EncodedObject, error) {
	if it.pos >= len(it.objs) {
		return nil, io.EOF
	}
	o := it.objs[it.pos]
	it.pos++
	return o, nil
}

func (it *objectSliceIter) ForEach(f func(plumbing.EncodedObject) error) error {
	for _, o := range it.objs {
		if err := f(o); err != nil {
			return err
		}
	}
	return nil
}

func (it *objectSliceIter) Close() { it.pos = len(it.objs) }

type referenceSliceIter struct {
	refs []*plumbing.Reference
	pos  int
}

func (it *referenceSliceIter) Next() (*plumbing.Reference, error) {
	if it.pos >= len(it.refs) {
		return nil, io.EOF
	}
	r := it.refs[it.pos]
	it.pos++
	return r, nil
}

func (it *referenceSliceIter) ForEach(f func(*plumbing.Reference) error) error {
	for _, r := range it.refs {
		if err := f(r); err != nil {
			return err
		}
	}
	return nil
}

func (it *referenceSliceIter) Close() { it.pos = len(it.refs) }

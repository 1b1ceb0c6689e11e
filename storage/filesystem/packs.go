package filesystem

import (
	"io"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/gitcas/gitcas/internal/arena"
	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/cache"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
	"github.com/gitcas/gitcas/plumbing/format/packfile"
	"github.com/gitcas/gitcas/storage/filesystem/dotgit"
)

// openPack is one loaded (pack, index) pair and the decoder built over it.
// The pack's bytes are served through mapper, a memory mapping of the
// whole file (§4.2/§6's Mapper capability); file is kept only so it can be
// closed alongside the mapping.
type openPack struct {
	digest  plumbing.Hash
	file    billy.File
	mapper  *dotgit.FileMapper
	index   *idxfile.MemoryIndex
	decoder *packfile.Decoder
}

func (op *openPack) close() error {
	var err error
	if op.mapper != nil {
		err = op.mapper.Close()
	}
	if cerr := op.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Packs is the pack engine: it holds every open (pack, index) pair,
// resolves a digest to the pack that contains it, and reconstructs objects
// through packfile.Decoder. Delta bases that aren't in the requesting
// pack's own index fall through to the loose store and then to the
// engine's other packs, in that order.
type Packs struct {
	dot   *dotgit.DotGit
	loose *Loose
	arena *arena.Arena
	cache *cache.KeyedLRU

	mu    sync.RWMutex
	packs map[plumbing.Hash]*openPack
}

// NewPacks returns an empty pack engine. Call Load to pick up any packs
// already on disk.
func NewPacks(dot *dotgit.DotGit, loose *Loose, arenaPool *arena.Arena, objCache *cache.KeyedLRU) *Packs {
	return &Packs{
		dot:   dot,
		loose: loose,
		arena: arenaPool,
		cache: objCache,
		packs: make(map[plumbing.Hash]*openPack),
	}
}

// Load opens every pack already present under objects/pack/.
func (p *Packs) Load() error {
	digests, err := p.dot.ObjectPacks()
	if err != nil {
		return err
	}
	for _, h := range digests {
		if err := p.open(h); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packs) open(digest plumbing.Hash) error {
	f, err := p.dot.ObjectPack(digest)
	if err != nil {
		return err
	}

	idxFile, err := p.dot.ObjectPackIdx(digest)
	if err != nil {
		_ = f.Close()
		return err
	}
	defer idxFile.Close()

	idx := new(idxfile.MemoryIndex)
	if err := idxfile.NewDecoder(idxFile).Decode(idx); err != nil {
		_ = f.Close()
		return err
	}

	op, err := p.newOpenPack(digest, f, idx)
	if err != nil {
		_ = f.Close()
		return err
	}

	p.mu.Lock()
	p.packs[digest] = op
	p.mu.Unlock()
	return nil
}

// newOpenPack maps f's whole content (the windowed memory-mapped access
// §4.2/§2 call for) and builds the decoder that serves reads out of that
// mapping instead of issuing a ReadAt per entry against the raw file.
func (p *Packs) newOpenPack(digest plumbing.Hash, f billy.File, idx *idxfile.MemoryIndex) (*openPack, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	mapper, err := dotgit.NewFileMapper(f)
	if err != nil {
		return nil, err
	}
	ra := dotgit.NewMappedReaderAt(mapper, info.Size())

	op := &openPack{digest: digest, file: f, mapper: mapper, index: idx}
	op.decoder = packfile.NewDecoder(digest, ra, idx, p.arena, p.cache, p.looseResolver(), p.crossPackResolver(digest))
	return op, nil
}

// Register adds a newly ingested (pack, index) pair to the engine. The
// pack and its index are already durable on disk by the time this is
// called (dotgit.PackWriter publishes index-then-pack before invoking its
// Notify callback), so Register only has to open them and make the engine
// observe them; if that fails, nothing was exposed.
func (p *Packs) Register(digest plumbing.Hash, idx *idxfile.MemoryIndex) error {
	f, err := p.dot.ObjectPack(digest)
	if err != nil {
		return err
	}

	op, err := p.newOpenPack(digest, f, idx)
	if err != nil {
		_ = f.Close()
		return err
	}

	p.mu.Lock()
	p.packs[digest] = op
	p.mu.Unlock()
	return nil
}

// Remove closes and deletes the pack and index for digest, used by Repack
// once its replacement is safely in place.
func (p *Packs) Remove(digest plumbing.Hash) error {
	p.mu.Lock()
	op, ok := p.packs[digest]
	delete(p.packs, digest)
	p.mu.Unlock()

	if ok {
		_ = op.close()
	}
	if p.arena != nil {
		p.arena.Forget(digest)
	}
	return p.dot.RemovePack(digest)
}

// Has reports whether h is present in any open pack.
func (p *Packs) Has(h plumbing.Hash) (bool, error) {
	_, ok, err := p.Lookup(h)
	return ok, err
}

// Lookup returns the digest of the pack containing h, if any.
func (p *Packs) Lookup(h plumbing.Hash) (plumbing.Hash, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for digest, op := range p.packs {
		ok, err := op.index.Contains(h)
		if err != nil {
			return plumbing.ZeroHash, false, err
		}
		if ok {
			return digest, true, nil
		}
	}
	return plumbing.ZeroHash, false, nil
}

// List returns the de-duplicated union of every object digest across every
// open pack.
func (p *Packs) List() ([]plumbing.Hash, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[plumbing.Hash]bool)
	var out []plumbing.Hash
	for _, op := range p.packs {
		it, err := op.index.Entries()
		if err != nil {
			return nil, err
		}
		for {
			e, err := it.Next()
			if err != nil {
				break
			}
			if !seen[e.Hash] {
				seen[e.Hash] = true
				out = append(out, e.Hash)
			}
		}
		_ = it.Close()
	}
	return out, nil
}

// Get reconstructs h from whichever open pack contains it.
func (p *Packs) Get(h plumbing.Hash) (plumbing.EncodedObject, error) {
	p.mu.RLock()
	var target *openPack
	for _, op := range p.packs {
		if ok, err := op.index.Contains(h); err == nil && ok {
			target = op
			break
		}
	}
	p.mu.RUnlock()

	if target == nil {
		return nil, plumbing.ErrObjectNotFound
	}

	t, content, err := target.decoder.DecodeByHash(h)
	if err != nil {
		return nil, err
	}
	return plumbing.NewMemoryObjectFrom(t, content), nil
}

// looseResolver lets a pack's delta chain bottom out in the loose store,
// the second backend the reconstruction algorithm tries for a ref-delta
// base.
func (p *Packs) looseResolver() packfile.LooseResolver {
	return func(h plumbing.Hash) (plumbing.ObjectType, []byte, bool, error) {
		ok, err := p.loose.Has(h)
		if err != nil || !ok {
			return plumbing.InvalidObject, nil, false, err
		}
		o, err := p.loose.Get(h)
		if err != nil {
			return plumbing.InvalidObject, nil, false, err
		}
		content, err := readAll(o)
		if err != nil {
			return plumbing.InvalidObject, nil, false, err
		}
		return o.Type(), content, true, nil
	}
}

// crossPackResolver lets a pack's delta chain fall through to the engine's
// other packs, the third and last backend tried for a ref-delta base.
func (p *Packs) crossPackResolver(except plumbing.Hash) packfile.CrossPackResolver {
	return func(h plumbing.Hash) (plumbing.ObjectType, []byte, bool, error) {
		p.mu.RLock()
		defer p.mu.RUnlock()

		for digest, op := range p.packs {
			if digest == except {
				continue
			}
			ok, err := op.index.Contains(h)
			if err != nil {
				return plumbing.InvalidObject, nil, false, err
			}
			if !ok {
				continue
			}
			t, content, err := op.decoder.DecodeByHash(h)
			if err != nil {
				return plumbing.InvalidObject, nil, false, err
			}
			return t, content, true, nil
		}
		return plumbing.InvalidObject, nil, false, nil
	}
}

func readAll(o plumbing.EncodedObject) ([]byte, error) {
	r, err := o.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	buf := make([]byte, o.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

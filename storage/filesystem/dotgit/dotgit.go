// Package dotgit implements the on-disk layout of a repository directory:
// loose objects under objects/<hh>/<hhhhh...>, packs and their indexes under
// objects/pack/, and the reference directory (refs/, HEAD, packed-refs).
// See https://github.com/git/git/blob/master/Documentation/gitrepository-layout.txt.
package dotgit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/gitcas/gitcas/plumbing"
)

const (
	packedRefsPath = "packed-refs"
	configPath     = "config"
	headPath       = "HEAD"

	objectsPath = "objects"
	packPath    = "pack"
	refsPath    = "refs"

	packExt = ".pack"
	idxExt  = ".idx"
)

// Sentinel errors returned by this package.
var (
	ErrNotFound         = errors.New("path not found")
	ErrIdxNotFound      = errors.New("idx file not found")
	ErrPackfileNotFound = errors.New("packfile not found")
	ErrConfigNotFound   = errors.New("config file not found")
)

// DotGit represents a repository directory on disk. It is not zero-value
// safe; use New.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit backed by fs. fs's root is the repository directory
// itself (e.g. the ".git" directory), not its parent.
func New(fs billy.Filesystem) *DotGit {
	return &DotGit{fs: fs}
}

// Initialize prepares a fresh repository directory: it creates the objects
// and refs directories and, if HEAD is absent, points it at
// refs/heads/master.
func (d *DotGit) Initialize() error {
	if err := d.fs.MkdirAll(d.fs.Join(objectsPath, packPath), 0o755); err != nil {
		return err
	}
	if err := d.fs.MkdirAll(refsPath, 0o755); err != nil {
		return err
	}

	if _, err := d.fs.Stat(headPath); os.IsNotExist(err) {
		return d.SetRef(plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/master"))
	}

	return nil
}

// ConfigWriter returns a writer for the repository's config file.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.Create(configPath)
}

// Config opens the repository's config file.
func (d *DotGit) Config() (billy.File, error) {
	f, err := d.fs.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return f, nil
}

// ObjectPacks returns the digests of every pack in objects/pack/.
func (d *DotGit) ObjectPacks() ([]plumbing.Hash, error) {
	dir := d.fs.Join(objectsPath, packPath)
	files, err := d.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []plumbing.Hash
	for _, f := range files {
		n := f.Name()
		if !strings.HasSuffix(n, packExt) {
			continue
		}
		// "pack-<digest>.pack"
		digest := n[len("pack-") : len(n)-len(packExt)]
		packs = append(packs, plumbing.NewHash(digest))
	}

	return packs, nil
}

// ObjectPack opens the pack file for h.
func (d *DotGit) ObjectPack(h plumbing.Hash) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", h, packExt))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}
	return f, nil
}

// ObjectPackIdx opens the index file for h.
func (d *DotGit) ObjectPackIdx(h plumbing.Hash) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", h, idxExt))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdxNotFound
		}
		return nil, err
	}
	return f, nil
}

// RemovePack deletes the pack and index files for h, used when a repack
// supersedes them.
func (d *DotGit) RemovePack(h plumbing.Hash) error {
	base := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s", h))
	if err := d.fs.Remove(base + idxExt); err != nil && !os.IsNotExist(err) {
		return err
	}
	return d.fs.Remove(base + packExt)
}

// Objects returns the digests of every loose object under objects/.
func (d *DotGit) Objects() ([]plumbing.Hash, error) {
	dirs, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var objects []plumbing.Hash
	for _, dir := range dirs {
		if !dir.IsDir() || len(dir.Name()) != 2 || !isHex(dir.Name()) {
			continue
		}

		base := dir.Name()
		files, err := d.fs.ReadDir(d.fs.Join(objectsPath, base))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			objects = append(objects, plumbing.NewHash(base+f.Name()))
		}
	}

	return objects, nil
}

// Object opens the loose object file for h, if present.
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	hex := h.String()
	path := d.fs.Join(objectsPath, hex[:2], hex[2:])

	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// RemoveLooseObject deletes the loose object file for h, used by Repack
// once its content is safely absorbed into a new pack.
func (d *DotGit) RemoveLooseObject(h plumbing.Hash) error {
	hex := h.String()
	path := d.fs.Join(objectsPath, hex[:2], hex[2:])
	return d.fs.Remove(path)
}

// NewObjectWriter returns a writer for a new loose object; its final path
// is only determined, and the temp file renamed into place, once Close is
// called with the object's digest known.
func (d *DotGit) NewObjectWriter() (*ObjectWriter, error) {
	return newObjectWriter(d.fs)
}

// NewObjectPack returns a writer that, as bytes are written to it, is
// simultaneously scanned to build a pack index; on Close the pack and its
// index are published atomically under objects/pack/.
func (d *DotGit) NewObjectPack() (*PackWriter, error) {
	return newPackWriter(d.fs)
}

func isHex(s string) bool {
	for _, b := range []byte(s) {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}
	return true
}

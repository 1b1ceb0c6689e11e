package dotgit

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gitcas/gitcas/plumbing"
)

// Sentinel errors for the reference directory.
var (
	ErrPackedRefsBadFormat  = errors.New("malformed packed-ref")
	ErrSymRefTargetNotFound = errors.New("symbolic reference target not found")
)

// Refs scans the repository directory for every reference: HEAD, loose
// refs under refs/, and packed-refs. Symbolic references are returned
// unresolved; graph building and resolution is the reference store's job,
// not this package's.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference

	if err := d.addRefFromHEAD(&refs); err != nil {
		return nil, err
	}
	if err := d.addRefsFromRefDir(&refs); err != nil {
		return nil, err
	}
	if err := d.addRefsFromPackedRefs(&refs); err != nil {
		return nil, err
	}

	return refs, nil
}

// Ref reads a single per-file reference, returning (nil, nil) if it is
// absent rather than an error; callers needing packed-refs fallback should
// combine this with PackedRef.
func (d *DotGit) Ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.readReferenceFile(string(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ref, nil
}

// SetRef writes r's per-file reference atomically (temp file + rename).
func (d *DotGit) SetRef(r *plumbing.Reference) error {
	content := r.Strings()

	var line string
	switch r.Type() {
	case plumbing.SymbolicReference:
		line = "ref: " + content[1] + "\n"
	default:
		line = content[1] + "\n"
	}

	return d.writeFileAtomic(string(r.Name()), []byte(line))
}

// RemoveRef deletes the per-file reference named name, if present.
func (d *DotGit) RemoveRef(name plumbing.ReferenceName) error {
	err := d.fs.Remove(string(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// PackedRefs parses packed-refs into a name -> Reference map, skipping
// comment and peeled-tag lines. Returns an empty map, not an error, when
// packed-refs does not exist.
func (d *DotGit) PackedRefs() (map[plumbing.ReferenceName]*plumbing.Reference, error) {
	out := map[plumbing.ReferenceName]*plumbing.Reference{}

	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		ref, err := parsePackedRefLine(s.Text())
		if err != nil {
			return nil, err
		}
		if ref != nil {
			out[ref.Name()] = ref
		}
	}
	return out, s.Err()
}

// RewritePackedRefs atomically replaces packed-refs with entries, sorted
// by name. Peeled tag lines are never emitted, since nothing here resolves
// an annotated tag down to the commit it points at, so the header doesn't
// claim "peeled".
func (d *DotGit) RewritePackedRefs(entries []*plumbing.Reference) error {
	sorted := append([]*plumbing.Reference(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	var b strings.Builder
	b.WriteString("# pack-refs with: sorted\n")
	for _, r := range sorted {
		pair := r.Strings()
		b.WriteString(pair[1])
		b.WriteByte(' ')
		b.WriteString(pair[0])
		b.WriteByte('\n')
	}

	return d.writeFileAtomic(packedRefsPath, []byte(b.String()))
}

func parsePackedRefLine(line string) (*plumbing.Reference, error) {
	if line == "" {
		return nil, nil
	}

	switch line[0] {
	case '#': // header comment
		return nil, nil
	case '^': // peeled tag commit of the previous line
		return nil, nil
	default:
		ws := strings.SplitN(line, " ", 2)
		if len(ws) != 2 {
			return nil, ErrPackedRefsBadFormat
		}
		return plumbing.NewReferenceFromStrings(ws[1], ws[0]), nil
	}
}

func (d *DotGit) addRefsFromPackedRefs(refs *[]*plumbing.Reference) error {
	packed, err := d.PackedRefs()
	if err != nil {
		return err
	}
	for _, r := range packed {
		*refs = append(*refs, r)
	}
	return nil
}

func (d *DotGit) addRefsFromRefDir(refs *[]*plumbing.Reference) error {
	return d.walkReferencesTree(refs, refsPath)
}

func (d *DotGit) walkReferencesTree(refs *[]*plumbing.Reference, relPath string) error {
	files, err := d.fs.ReadDir(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, f := range files {
		newRelPath := d.fs.Join(relPath, f.Name())
		if f.IsDir() {
			if err := d.walkReferencesTree(refs, newRelPath); err != nil {
				return err
			}
			continue
		}

		ref, err := d.readReferenceFile(newRelPath)
		if err != nil {
			return err
		}
		if ref != nil {
			*refs = append(*refs, ref)
		}
	}

	return nil
}

func (d *DotGit) addRefFromHEAD(refs *[]*plumbing.Reference) error {
	ref, err := d.readReferenceFile(headPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if ref != nil {
		*refs = append(*refs, ref)
	}
	return nil
}

func (d *DotGit) readReferenceFile(relPath string) (*plumbing.Reference, error) {
	f, err := d.fs.Open(relPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, nil
	}
	return plumbing.NewReferenceFromStrings(relPath, line), nil
}

// writeFileAtomic writes data to a fresh temp file in path's own directory,
// then renames it over path, so a reader never observes a partial write.
func (d *DotGit) writeFileAtomic(path string, data []byte) error {
	dir := parentDir(path)
	if dir != "" {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := d.fs.TempFile(dir, "tmp_ref_")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = d.fs.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = d.fs.Remove(tmp.Name())
		return err
	}

	return d.fs.Rename(tmp.Name(), path)
}

func parentDir(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

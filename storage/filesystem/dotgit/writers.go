package dotgit

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"

	"github.com/gitcas/gitcas/plumbing"
	"github.com/gitcas/gitcas/plumbing/format/idxfile"
	"github.com/gitcas/gitcas/plumbing/format/objfile"
	"github.com/gitcas/gitcas/plumbing/format/packfile"
)

// PackWriter is an io.Writer that builds a pack index as the pack is
// written to it: a syncedReader lets packfile.Parser read the bytes
// already flushed to the temp file while more are still arriving, so the
// index is ready the moment the last byte is written. On Close the temp
// file and its index are published atomically under objects/pack/; if
// nothing was written, the temp file is simply removed.
type PackWriter struct {
	// Notify, if set, is called once Close has successfully published a
	// non-empty pack, with its digest and the index built while streaming.
	Notify func(plumbing.Hash, *idxfile.MemoryIndex)

	fs     billy.Filesystem
	fr, fw billy.File
	synced *syncedReader

	checksum plumbing.Hash
	writer   *idxfile.Writer
	parseErr chan error
}

func newPackWriter(fs billy.Filesystem) (*PackWriter, error) {
	fw, err := fs.TempFile(fs.Join(objectsPath, packPath), "tmp_pack_")
	if err != nil {
		return nil, err
	}

	fr, err := fs.Open(fw.Name())
	if err != nil {
		return nil, err
	}

	w := &PackWriter{
		fs:       fs,
		fw:       fw,
		fr:       fr,
		synced:   newSyncedReader(fw, fr),
		writer:   new(idxfile.Writer),
		parseErr: make(chan error, 1),
	}

	go w.buildIndex()
	return w, nil
}

func (w *PackWriter) buildIndex() {
	parser := packfile.NewParser(w.synced, w.writer)
	info, err := parser.Parse()
	if err != nil {
		w.parseErr <- err
		return
	}

	// The first pass left every delta entry's Hash zero; fill those in now
	// by reconstructing each one against the bytes already on disk, then
	// index them alongside the non-delta entries w.writer already recorded
	// as the parser's Observer, so a pack's index covers every object it
	// contains, not just the ones that didn't need a base.
	if err := packfile.ResolveDeltaHashes(w.fr, info); err != nil {
		w.parseErr <- err
		return
	}
	for _, e := range info.Entries {
		if e.IsDelta() {
			w.writer.Add(e.Hash, uint64(e.Offset), e.CRC32)
		}
	}

	w.checksum = info.PackfileChecksum
	w.parseErr <- nil
}

// Write feeds p both to the temp file and to the in-progress parse.
func (w *PackWriter) Write(p []byte) (int, error) {
	return w.synced.Write(p)
}

// Close finishes the write, waits for index construction to catch up, and
// publishes the pack and its index. If the pack was empty, the temp file
// is discarded instead.
func (w *PackWriter) Close() error {
	if err := w.synced.Close(); err != nil {
		return err
	}

	err := <-w.parseErr
	if errors.Is(err, packfile.ErrEmptyPackfile) {
		_ = w.fr.Close()
		_ = w.fw.Close()
		return w.clean()
	}
	if err != nil {
		_ = w.fr.Close()
		_ = w.fw.Close()
		_ = w.clean()
		return err
	}

	if err := w.fr.Close(); err != nil {
		return err
	}
	if err := w.fw.Close(); err != nil {
		return err
	}

	if err := w.save(); err != nil {
		return err
	}

	if w.Notify != nil {
		idx, err := w.writer.CreateIndex()
		if err == nil {
			w.Notify(w.checksum, idx)
		}
	}

	return nil
}

func (w *PackWriter) clean() error {
	return w.fs.Remove(w.fw.Name())
}

func (w *PackWriter) save() error {
	idx, err := w.writer.CreateIndex()
	if err != nil {
		return err
	}
	idx.PackfileChecksum = w.checksum

	base := w.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s", w.checksum))

	idxFile, err := w.fs.Create(base + idxExt)
	if err != nil {
		return err
	}
	if _, err := idxfile.NewEncoder(idxFile).Encode(idx); err != nil {
		_ = idxFile.Close()
		return err
	}
	if err := idxFile.Close(); err != nil {
		return err
	}

	// The index is durable before the pack is visible under its final name,
	// so a reader that lists objects/pack/ never sees a pack without a
	// matching index.
	return w.fs.Rename(w.fw.Name(), base+packExt)
}

// syncedReader lets a single temp file be written and, concurrently, read
// from the start, blocking the reader whenever it has caught up to the
// writer instead of observing EOF. Uses a wake channel gated on an atomic
// progress counter rather than a busy-wait.
type syncedReader struct {
	w io.Writer
	r io.ReadSeeker

	blocked, done atomic.Uint32
	written, read atomic.Uint64
	news          chan bool
}

func newSyncedReader(w io.Writer, r io.ReadSeeker) *syncedReader {
	return &syncedReader{w: w, r: r, news: make(chan bool)}
}

func (s *syncedReader) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	written := s.written.Add(uint64(n))
	if written > s.read.Load() {
		s.wake()
	}
	return n, err
}

func (s *syncedReader) Read(p []byte) (n int, err error) {
	defer func() { s.read.Add(uint64(n)) }()

	for {
		s.sleep()
		n, err = s.r.Read(p)
		if err == io.EOF && !s.isDone() && n == 0 {
			continue
		}
		return n, err
	}
}

func (s *syncedReader) isDone() bool    { return s.done.Load() == 1 }
func (s *syncedReader) isBlocked() bool { return s.blocked.Load() == 1 }

func (s *syncedReader) wake() {
	if s.isBlocked() {
		s.blocked.Store(0)
		s.news <- true
	}
}

func (s *syncedReader) sleep() {
	if s.read.Load() >= s.written.Load() {
		s.blocked.Store(1)
		<-s.news
	}
}

func (s *syncedReader) Close() error {
	s.done.Store(1)
	close(s.news)
	return nil
}

// ObjectWriter writes a new loose object to a temp file via objfile.Writer,
// renaming it into its content-addressed path only once Close has the
// final digest.
type ObjectWriter struct {
	*objfile.Writer
	fs billy.Filesystem
	f  billy.File
}

func newObjectWriter(fs billy.Filesystem) (*ObjectWriter, error) {
	f, err := fs.TempFile(fs.Join(objectsPath, packPath), "tmp_obj_")
	if err != nil {
		return nil, err
	}

	return &ObjectWriter{Writer: objfile.NewWriter(f), fs: fs, f: f}, nil
}

func (w *ObjectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}
	return w.save()
}

func (w *ObjectWriter) save() error {
	hex := w.Hash().String()
	path := w.fs.Join(objectsPath, hex[:2], hex[2:])

	if err := w.fs.MkdirAll(w.fs.Join(objectsPath, hex[:2]), 0o755); err != nil {
		return err
	}
	return w.fs.Rename(w.f.Name(), path)
}

package dotgit

import (
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
)

// Region is a read-only view of part of a file, backed by a real mapping
// on platforms that support it (see mmap_unix.go) and by a plain copy on
// others (mmap_other.go).
type Region interface {
	Bytes() []byte
}

// Mapper produces read-only memory regions of a file at a given offset
// and length, the windowed access §4.2/§6 call for when a pack decoder
// walks a delta chain. A Mapper is built once per open file (mmapFile maps
// the whole thing) and every subsequent Map call slices that single
// mapping rather than issuing a new mmap syscall per window.
type Mapper interface {
	Map(offset int64, length int) (Region, error)
	Close() error
}

// sliceRegion is a Region backed by a plain byte slice, either a real
// mapping or the ReadAt-based fallback copy.
type sliceRegion []byte

func (s sliceRegion) Bytes() []byte { return s }

// FileMapper is the Mapper implementation over a billy.File: a real mmap
// on linux/darwin (see mmap_unix.go), or a one-time in-memory copy on
// other platforms (see mmap_other.go) — same Region shape either way, so
// a caller never has to know which backend is in play.
type FileMapper struct {
	data    []byte
	cleanup func() error
}

// NewFileMapper maps the whole of f and returns a Mapper over it. f is
// not retained past this call; closing the file is the caller's
// responsibility once the returned Mapper is also closed.
func NewFileMapper(f billy.File) (*FileMapper, error) {
	data, cleanup, err := mmapFile(f)
	if err != nil {
		return nil, err
	}
	return &FileMapper{data: data, cleanup: cleanup}, nil
}

// Map returns the region [offset, offset+length) of the mapped file.
func (m *FileMapper) Map(offset int64, length int) (Region, error) {
	if offset < 0 || length < 0 || offset+int64(length) > int64(len(m.data)) {
		return nil, fmt.Errorf("mapped region [%d,%d) out of range (file is %d bytes)", offset, offset+int64(length), len(m.data))
	}
	return sliceRegion(m.data[offset : offset+int64(length)]), nil
}

// Close releases the underlying mapping (or, on the fallback path, simply
// drops the copied bytes).
func (m *FileMapper) Close() error {
	if m.cleanup == nil {
		return nil
	}
	cleanup := m.cleanup
	m.cleanup = nil
	return cleanup()
}

// readWholeFile is the portable fallback a platform without real mmap
// support uses: a single ReadAt pass over the whole file, giving the same
// Region-slicing shape Mapper.Map expects without a real mapping
// underneath it.
func readWholeFile(f billy.File) ([]byte, func() error, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	size := info.Size()
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(f, 0, size), buf); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return buf, func() error { return nil }, nil
}

// MappedReaderAt adapts a Mapper to io.ReaderAt, so a packfile.Decoder can
// keep treating pack access as ordinary random reads while every read it
// issues is actually served out of the file's single memory mapping.
type MappedReaderAt struct {
	m    Mapper
	size int64
}

// NewMappedReaderAt returns an io.ReaderAt of size bytes backed by m.
func NewMappedReaderAt(m Mapper, size int64) *MappedReaderAt {
	return &MappedReaderAt{m: m, size: size}
}

// ReadAt implements io.ReaderAt by mapping exactly the requested window.
func (r *MappedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}

	end := off + int64(len(p))
	if end > r.size {
		end = r.size
	}

	region, err := r.m.Map(off, int(end-off))
	if err != nil {
		return 0, err
	}

	n := copy(p, region.Bytes())
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

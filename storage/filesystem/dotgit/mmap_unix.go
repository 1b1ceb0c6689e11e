//go:build linux || darwin

package dotgit

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/sys/unix"
)

// mmapFile maps the whole of f read-only and returns the mapping plus a
// cleanup func that unmaps it. f must expose a real OS file descriptor
// (see fileDescriptor); filesystems that don't (e.g. memfs) fall back to
// a plain ReadAt copy, the same shape readWholeFile returns, so callers
// never have to branch on which path was taken.
func mmapFile(f billy.File) ([]byte, func() error, error) {
	fd, ok := fileDescriptor(f)
	if !ok {
		return readWholeFile(f)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, func() error { return nil }, nil
	}

	data, err := unix.Mmap(int(fd), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}

	cleanup := func() error { return unix.Munmap(data) }
	return data, cleanup, nil
}

// fileDescriptor extracts an OS file descriptor from f, if the concrete
// billy.File backing it exposes one. go-billy's osfs file type promotes
// *os.File's Fd() uintptr directly; some wrappers instead expose the
// bool-returning "do I have one" shape. Neither is present on an
// in-memory filesystem like memfs.
func fileDescriptor(f billy.File) (uintptr, bool) {
	if h, ok := f.(interface{ Fd() (uintptr, bool) }); ok {
		return h.Fd()
	}
	if h, ok := f.(interface{ Fd() uintptr }); ok {
		return h.Fd(), true
	}
	return 0, false
}

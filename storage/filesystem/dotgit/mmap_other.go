//go:build !linux && !darwin

package dotgit

import "github.com/go-git/go-billy/v5"

// mmapFile is the portable fallback for platforms without the unix mmap
// syscalls wired up: it reads the whole file into memory once, giving
// FileMapper the same slice-backed Region shape a real mapping would,
// at the cost of a copy instead of a mapping.
func mmapFile(f billy.File) ([]byte, func() error, error) {
	return readWholeFile(f)
}

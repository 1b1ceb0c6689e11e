package object

import (
	"strconv"
)

// FileMode is a tree entry's mode, stored as the octal string baked into a
// tree object's canonical bytes (e.g. "100644", "40000", "120000").
type FileMode uint32

const (
	Empty          FileMode = 0
	Dir            FileMode = 0040000
	Regular        FileMode = 0100644
	Deprecated     FileMode = 0100664
	Executable     FileMode = 0100755
	Symlink        FileMode = 0120000
	Submodule      FileMode = 0160000
)

// String renders m the way a tree entry's header encodes it: no leading
// zero, so a directory is "40000" rather than "040000".
func (m FileMode) String() string {
	return strconv.FormatUint(uint64(m), 8)
}

// ParseFileMode parses a tree entry's mode token.
func ParseFileMode(s string) (FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, ErrMalformedObject
	}
	return FileMode(n), nil
}

// IsDir reports whether m addresses a subtree.
func (m FileMode) IsDir() bool { return m == Dir }

// IsRegular reports whether m is a plain (non-executable, non-symlink) file.
func (m FileMode) IsRegular() bool { return m == Regular || m == Deprecated }

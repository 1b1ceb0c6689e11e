// Package idxfile implements the pack index (.idx) format: a fanout table
// over sorted object digests plus parallel CRC32 and offset tables, letting
// a reader locate any object inside a pack without scanning it.
package idxfile

import "errors"

// VersionSupported is the only on-disk index version this package reads or
// writes.
const VersionSupported = 2

const (
	headerSize  = 8 // magic + version
	fanoutSize  = 256 * 4
	crcSize     = 4
	offset32Size = 4
	offset64Size = 8

	// is64BitsMask marks an Offset32 entry as an index into Offset64 rather
	// than a literal offset, for objects beyond the 2GiB boundary.
	is64BitsMask = uint32(1) << 31
)

// header is the magic signature every v2 idx file starts with.
var header = []byte{255, 't', 'O', 'c'}

// ErrInvalidIdxFile is returned when the idx stream fails to parse as a
// well-formed v2 index.
var ErrInvalidIdxFile = errors.New("invalid idx file")

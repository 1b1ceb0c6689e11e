// Package objfile implements the loose-object on-disk format: a zlib
// stream wrapping "<kind> <size>\0" followed by the object's canonical
// payload, as stored at objects/<hh>/<hhhhh...>.
package objfile

import "errors"

var (
	// ErrOverflow is returned when a Writer is given more bytes than the
	// size declared in WriteHeader.
	ErrOverflow = errors.New("declared size and data length mismatch")
	// ErrNegativeSize is returned when WriteHeader is given a negative size.
	ErrNegativeSize = errors.New("size must not be negative")
	// ErrHeaderTooLong is returned when the "<kind> <size>\0" preamble
	// exceeds the bound the reader is willing to scan.
	ErrHeaderTooLong = errors.New("object header too long")
	// ErrMalformedHeader is returned when the header cannot be parsed as
	// "<kind> <size>".
	ErrMalformedHeader = errors.New("malformed object header")
)

// maxHeaderSize bounds how many header bytes Reader will scan before giving
// up, guarding against a corrupt stream with no NUL byte.
const maxHeaderSize = 64

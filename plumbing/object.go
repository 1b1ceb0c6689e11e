package plumbing

import (
	"bytes"
	"errors"
	"io"
)

// Sentinel errors returned across the store. Concrete call sites wrap these
// with additional context (path, operation) rather than inventing new kinds.
var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrInvalidType     = errors.New("invalid object type")
	ErrReferenceNotFound = errors.New("reference not found")
	ErrInvalidReference  = errors.New("invalid reference name")
)

// ObjectType identifies one of the four persisted object kinds, plus the two
// delta encodings used only inside a pack entry header. Integer values match
// git's own wire encoding so pack headers can use them directly.
type ObjectType int8

const (
	InvalidObject ObjectType = 0
	CommitObject  ObjectType = 1
	TreeObject    ObjectType = 2
	BlobObject    ObjectType = 3
	TagObject     ObjectType = 4
	// 5 is reserved by the wire format for future expansion.
	OFSDeltaObject ObjectType = 6
	REFDeltaObject ObjectType = 7

	// AnyObject is used by readers that accept any of the four kinds.
	AnyObject ObjectType = -127
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OFSDeltaObject:
		return "ofs-delta"
	case REFDeltaObject:
		return "ref-delta"
	case AnyObject:
		return "any"
	default:
		return "unknown"
	}
}

// Bytes returns the ASCII form of t, as written in a loose object's header.
func (t ObjectType) Bytes() []byte {
	return []byte(t.String())
}

// Valid reports whether t is one of the four persisted object kinds.
func (t ObjectType) Valid() bool {
	return t >= CommitObject && t <= TagObject
}

// IsDelta reports whether t is one of the two pack-only delta encodings.
func (t ObjectType) IsDelta() bool {
	return t == OFSDeltaObject || t == REFDeltaObject
}

// ParseObjectType parses the ASCII header token of an object kind.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	case "ofs-delta":
		return OFSDeltaObject, nil
	case "ref-delta":
		return REFDeltaObject, nil
	default:
		return InvalidObject, ErrInvalidType
	}
}

// EncodedObject is the generic, storage-agnostic representation of any
// object: a kind, a size and a byte stream. Every backend (loose, packed,
// in-memory) produces and consumes values through this interface so the
// façade can move objects between them without knowing which backend
// produced them.
type EncodedObject interface {
	Hash() Hash
	Type() ObjectType
	SetType(ObjectType)
	Size() int64
	SetSize(int64)
	Reader() (io.ReadCloser, error)
	Writer() (io.WriteCloser, error)
}

// DeltaObject is an EncodedObject that additionally exposes the base object
// it was reconstructed against, useful to the pack encoder when it wants to
// re-emit an already-delta-compressed object without recomputing the delta.
type DeltaObject interface {
	EncodedObject
	BaseHash() Hash
}

// MemoryObject is the in-memory EncodedObject implementation used by
// callers that build an object graph before handing it to a backend (e.g.
// the pack encoder's input, or a freshly decoded loose object).
type MemoryObject struct {
	t    ObjectType
	h    Hash
	sz   int64
	cont []byte

	hashed bool
}

var _ EncodedObject = (*MemoryObject)(nil)

// NewMemoryObject returns an empty MemoryObject ready to be written to.
func NewMemoryObject() *MemoryObject {
	return &MemoryObject{}
}

func (o *MemoryObject) Hash() Hash {
	if !o.hashed {
		h := NewHasher(o.t, o.sz)
		h.Write(o.cont)
		o.h = h.Sum()
		o.hashed = true
	}
	return o.h
}

func (o *MemoryObject) Type() ObjectType      { return o.t }
func (o *MemoryObject) SetType(t ObjectType)  { o.t = t; o.hashed = false }
func (o *MemoryObject) Size() int64           { return o.sz }
func (o *MemoryObject) SetSize(s int64)       { o.sz = s }

// Reader returns a fresh reader over the object's payload.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(o.cont)), nil
}

// Writer returns a writer that replaces the object's payload. Each call to
// Writer resets the accumulated content; the object is meant to be written
// once and then read.
func (o *MemoryObject) Writer() (io.WriteCloser, error) {
	o.cont = o.cont[:0]
	o.hashed = false
	return &memoryObjectWriter{o}, nil
}

type memoryObjectWriter struct {
	o *MemoryObject
}

func (w *memoryObjectWriter) Write(p []byte) (int, error) {
	w.o.cont = append(w.o.cont, p...)
	w.o.hashed = false
	return len(p), nil
}

func (w *memoryObjectWriter) Close() error { return nil }

// NewMemoryObjectFrom builds a MemoryObject from a known kind and payload in
// one step, computing its size automatically. This is the common case for
// constructing objects to hand to a Storer.
func NewMemoryObjectFrom(t ObjectType, content []byte) *MemoryObject {
	o := &MemoryObject{t: t, sz: int64(len(content)), cont: append([]byte(nil), content...)}
	return o
}

// Content returns the object's raw payload. Only valid for MemoryObject,
// where the whole payload is guaranteed to be resident.
func (o *MemoryObject) Content() []byte {
	return o.cont
}

package plumbing

import "strings"

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	refNotePrefix   = refPrefix + "notes/"
	symrefPrefix    = "ref: "
)

// ReferenceType distinguishes a reference that resolves directly to a Hash
// from one that points at another reference by name.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

// ReferenceName is a slash-separated symbolic reference name, e.g.
// "refs/heads/master" or the special name "HEAD".
type ReferenceName string

// HEAD is the name of the repository's current-branch pointer.
const HEAD ReferenceName = "HEAD"

// String returns n unchanged; it exists so ReferenceName satisfies
// fmt.Stringer for logging/debugging call sites.
func (n ReferenceName) String() string { return string(n) }

// IsBranch reports whether n is a local branch ref.
func (n ReferenceName) IsBranch() bool { return strings.HasPrefix(string(n), refHeadPrefix) }

// IsNote reports whether n is a notes ref.
func (n ReferenceName) IsNote() bool { return strings.HasPrefix(string(n), refNotePrefix) }

// IsRemote reports whether n is a remote-tracking ref.
func (n ReferenceName) IsRemote() bool { return strings.HasPrefix(string(n), refRemotePrefix) }

// IsTag reports whether n is a tag ref.
func (n ReferenceName) IsTag() bool { return strings.HasPrefix(string(n), refTagPrefix) }

// Reference is an immutable value representing either a direct (hash)
// reference or a symbolic reference pointing at another name.
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewHashReference creates a direct reference n -> h.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{t: HashReference, n: n, h: h}
}

// NewSymbolicReference creates a reference n that points at another
// reference name, target.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{t: SymbolicReference, n: n, target: target}
}

// NewReferenceFromStrings builds a Reference from its on-disk textual
// representation: name and the line stored in the ref file (either a 40-hex
// hash or a "ref: <name>" symbolic pointer).
func NewReferenceFromStrings(name, value string) *Reference {
	r := &Reference{n: ReferenceName(name)}
	if strings.HasPrefix(value, symrefPrefix) {
		r.t = SymbolicReference
		r.target = ReferenceName(strings.TrimSpace(value[len(symrefPrefix):]))
		return r
	}

	r.t = HashReference
	r.h = NewHash(strings.TrimSpace(value))
	return r
}

// Type returns whether r is a hash or symbolic reference.
func (r *Reference) Type() ReferenceType { return r.t }

// Name returns r's own name.
func (r *Reference) Name() ReferenceName { return r.n }

// Hash returns the target hash of a HashReference. It is the zero Hash for a
// SymbolicReference.
func (r *Reference) Hash() Hash { return r.h }

// Target returns the target name of a SymbolicReference. It is empty for a
// HashReference.
func (r *Reference) Target() ReferenceName { return r.target }

// Strings returns the (name, value) pair as they would be written to a ref
// file or a packed-refs line.
func (r *Reference) Strings() [2]string {
	var value string
	switch r.t {
	case SymbolicReference:
		value = symrefPrefix + string(r.target)
	default:
		value = r.h.String()
	}
	return [2]string{string(r.n), value}
}

func (r *Reference) IsBranch() bool { return r.n.IsBranch() }
func (r *Reference) IsNote() bool   { return r.n.IsNote() }
func (r *Reference) IsRemote() bool { return r.n.IsRemote() }
func (r *Reference) IsTag() bool    { return r.n.IsTag() }

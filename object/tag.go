package object

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/gitcas/gitcas/plumbing"
)

// Tag is an annotated tag: a named pointer to another object (usually a
// commit), carrying its own tagger signature and message, distinct from a
// lightweight tag which is just a reference (plumbing.Reference) with no
// backing object.
type Tag struct {
	hash       plumbing.Hash
	Name       string
	TargetHash plumbing.Hash
	TargetType plumbing.ObjectType
	Tagger     Signature
	Message    string
	PGPSignature string
}

var _ Object = (*Tag)(nil)

// ID returns the tag object's digest.
func (t *Tag) ID() plumbing.Hash { return t.hash }

// Type always returns plumbing.TagObject.
func (t *Tag) Type() plumbing.ObjectType { return plumbing.TagObject }

// Decode parses o's payload into the tag's fields; o must already be of
// kind TagObject.
func (t *Tag) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.TagObject {
		return ErrUnsupportedObject
	}

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	t.hash = o.Hash()
	t.PGPSignature = ""

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var msg strings.Builder
	inMessage := false
	inSignature := false
	var sig strings.Builder

	for s.Scan() {
		line := s.Text()

		if inSignature {
			if line == " -----END PGP SIGNATURE-----" || line == "-----END PGP SIGNATURE-----" {
				sig.WriteString(strings.TrimPrefix(line, " "))
				t.PGPSignature = sig.String()
				inSignature = false
				continue
			}
			sig.WriteString(strings.TrimPrefix(line, " "))
			sig.WriteByte('\n')
			continue
		}

		if inMessage {
			msg.WriteString(line)
			msg.WriteByte('\n')
			continue
		}

		if line == "" {
			inMessage = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "object "):
			t.TargetHash = plumbing.NewHash(strings.TrimPrefix(line, "object "))
		case strings.HasPrefix(line, "type "):
			tt, err := plumbing.ParseObjectType(strings.TrimPrefix(line, "type "))
			if err != nil {
				return err
			}
			t.TargetType = tt
		case strings.HasPrefix(line, "tag "):
			t.Name = strings.TrimPrefix(line, "tag ")
		case strings.HasPrefix(line, "tagger "):
			t.Tagger.Decode([]byte(strings.TrimPrefix(line, "tagger ")))
		case strings.HasPrefix(line, "gpgsig"):
			inSignature = true
			sig.WriteString(strings.TrimPrefix(line, "gpgsig "))
			sig.WriteByte('\n')
		}
	}
	if err := s.Err(); err != nil {
		return err
	}

	t.Message = strings.TrimSuffix(msg.String(), "\n")
	if t.TargetHash.IsZero() || !t.TargetType.Valid() {
		return ErrMalformedObject
	}
	return nil
}

// Encode writes the tag's fields as o's payload, in the canonical header
// order: object, type, tag, tagger, blank line, message.
func (t *Tag) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TagObject)

	var buf bytes.Buffer
	buf.WriteString("object ")
	buf.WriteString(t.TargetHash.String())
	buf.WriteByte('\n')

	buf.WriteString("type ")
	buf.WriteString(t.TargetType.String())
	buf.WriteByte('\n')

	buf.WriteString("tag ")
	buf.WriteString(t.Name)
	buf.WriteByte('\n')

	buf.WriteString("tagger ")
	buf.Write(t.Tagger.Encode())
	buf.WriteByte('\n')

	if t.PGPSignature != "" {
		buf.WriteString("gpgsig ")
		lines := strings.Split(strings.TrimSuffix(t.PGPSignature, "\n"), "\n")
		for i, l := range lines {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(l)
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')
	buf.WriteString(t.Message)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	n, err := io.Copy(w, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	o.SetSize(n)
	return nil
}

// NewTag builds a Tag directly from fields, useful when constructing an
// object graph to write.
func NewTag(name string, target plumbing.Hash, targetType plumbing.ObjectType, tagger Signature, message string) *Tag {
	return &Tag{
		Name:       name,
		TargetHash: target,
		TargetType: targetType,
		Tagger:     tagger,
		Message:    message,
	}
}

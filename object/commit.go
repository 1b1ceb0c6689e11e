package object

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/gitcas/gitcas/plumbing"
)

// Commit is a snapshot pointer: a tree, zero or more parents, an author and
// committer signature, and a free-form message.
type Commit struct {
	hash      plumbing.Hash
	TreeHash  plumbing.Hash
	ParentHashes []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
	PGPSignature string
}

var _ Object = (*Commit)(nil)

// ID returns the commit's digest.
func (c *Commit) ID() plumbing.Hash { return c.hash }

// Type always returns plumbing.CommitObject.
func (c *Commit) Type() plumbing.ObjectType { return plumbing.CommitObject }

// NumParents reports how many parents this commit has; zero for a root
// commit, more than one for a merge.
func (c *Commit) NumParents() int { return len(c.ParentHashes) }

// Decode parses o's payload into the commit's fields; o must already be of
// kind CommitObject.
func (c *Commit) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.CommitObject {
		return ErrUnsupportedObject
	}

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	c.hash = o.Hash()
	c.ParentHashes = c.ParentHashes[:0]
	c.PGPSignature = ""

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
				c.PGPSignature = sig.String()
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
		case strings.HasPrefix(line, "tree "):
			c.TreeHash = plumbing.NewHash(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(strings.TrimPrefix(line, "parent ")))
		case strings.HasPrefix(line, "author "):
			c.Author.Decode([]byte(strings.TrimPrefix(line, "author ")))
		case strings.HasPrefix(line, "committer "):
			c.Committer.Decode([]byte(strings.TrimPrefix(line, "committer ")))
		case strings.HasPrefix(line, "gpgsig"):
			inSignature = true
			sig.WriteString(strings.TrimPrefix(line, "gpgsig "))
			sig.WriteByte('\n')
		default:
			// unrecognized header line (e.g. mergetag); ignored like the
			// teacher's permissive header scan.
		}
	}
	if err := s.Err(); err != nil {
		return err
	}

	c.Message = strings.TrimSuffix(msg.String(), "\n")
	if c.TreeHash.IsZero() {
		return ErrMalformedObject
	}
	return nil
}

// Encode writes the commit's fields as o's payload, in the canonical
// header order: tree, parents, author, committer, blank line, message.
func (c *Commit) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.CommitObject)

	var buf bytes.Buffer
	buf.WriteString("tree ")
	buf.WriteString(c.TreeHash.String())
	buf.WriteByte('\n')

	for _, p := range c.ParentHashes {
		buf.WriteString("parent ")
		buf.WriteString(p.String())
		buf.WriteByte('\n')
	}

	buf.WriteString("author ")
	buf.Write(c.Author.Encode())
	buf.WriteByte('\n')

	buf.WriteString("committer ")
	buf.Write(c.Committer.Encode())
	buf.WriteByte('\n')

	if c.PGPSignature != "" {
		buf.WriteString("gpgsig ")
		lines := strings.Split(strings.TrimSuffix(c.PGPSignature, "\n"), "\n")
		for i, l := range lines {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(l)
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')
	buf.WriteString(c.Message)

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

// NewCommit builds a Commit directly from fields, useful when constructing
// an object graph to write.
func NewCommit(tree plumbing.Hash, parents []plumbing.Hash, author, committer Signature, message string) *Commit {
	return &Commit{
		TreeHash:     tree,
		ParentHashes: parents,
		Author:       author,
		Committer:    committer,
		Message:      message,
	}
}

package object

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Signature is an author/committer/tagger line: a name, an email and a
// timestamp with its UTC offset, as embedded verbatim in a commit or tag's
// canonical bytes.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses a "Name <email> unix-seconds tz-offset" line, the form
// every commit/tag author, committer and tagger field uses.
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open < 0 || close < 0 || close < open {
		s.Name = strings.TrimSpace(string(b))
		return
	}

	s.Name = strings.TrimSpace(string(b[:open]))
	s.Email = string(b[open+1 : close])

	fields := strings.Fields(string(b[close+1:]))
	if len(fields) == 0 {
		return
	}

	when, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return
	}

	loc := time.UTC
	if len(fields) > 1 {
		if l, err := parseTZOffset(fields[1]); err == nil {
			loc = l
		}
	}
	s.When = time.Unix(when, 0).In(loc)
}

// Encode writes s in the same "Name <email> unix-seconds tz-offset" form.
func (s *Signature) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(s.Name)
	b.WriteString(" <")
	b.WriteString(s.Email)
	b.WriteString("> ")
	b.WriteString(strconv.FormatInt(s.When.Unix(), 10))
	b.WriteByte(' ')
	b.WriteString(s.When.Format("-0700"))
	return b.Bytes()
}

func parseTZOffset(s string) (*time.Location, error) {
	sign := 1
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if len(s) != 4 {
		return time.UTC, strconv.ErrSyntax
	}

	hh, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.UTC, err
	}
	mm, err := strconv.Atoi(s[2:])
	if err != nil {
		return time.UTC, err
	}

	offset := sign * (hh*3600 + mm*60)
	return time.FixedZone("", offset), nil
}

package packfile

import (
	"io"

	"github.com/gitcas/gitcas/plumbing"
)

// EntryInfo is everything the first pass learns about one pack entry
// without reconstructing it: its position, kind, declared size, its
// parent reference if it is a delta, and the CRC32 of its compressed
// bytes. Non-delta entries also get their final digest, computed for free
// while their single inflate pass runs; delta entries are left with a
// zero Hash, since computing it would require reconstructing the base
// chain — that happens later, during index assembly (see ResolveDeltaHashes).
type EntryInfo struct {
	Offset          int64
	Type            plumbing.ObjectType
	Size            int64
	OffsetReference int64
	Reference       plumbing.Hash
	CRC32           uint32
	Hash            plumbing.Hash
}

// IsDelta reports whether this entry needs a base to reconstruct.
func (e *EntryInfo) IsDelta() bool {
	return e.Type.IsDelta()
}

// Info is the result of a first pass over a pack stream: its header, the
// position/kind/parent-ref of every entry, and the trailing digest. No
// object body is ever held in memory for longer than one entry's inflate.
type Info struct {
	Version          uint32
	Entries          []*EntryInfo
	PackfileChecksum plumbing.Hash
}

// ByOffset returns the entry whose pack offset is o, or nil.
func (i *Info) ByOffset(o int64) *EntryInfo {
	// Entries are produced offset-ordered by Parse, so a binary search
	// would work; a linear scan is simpler and first-pass callers only
	// do this occasionally (ofs-delta base resolution), not per-byte.
	for _, e := range i.Entries {
		if e.Offset == o {
			return e
		}
	}
	return nil
}

// Parser drives a Scanner through an entire pack stream, notifying any
// Observers as it goes, and returns a structural Info record. It never
// holds more than one entry's inflated bytes in memory.
type Parser struct {
	scanner   *Scanner
	observers []Observer
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader, observers ...Observer) *Parser {
	return &Parser{scanner: NewScanner(r), observers: observers}
}

// Parse runs the first pass to completion.
func (p *Parser) Parse() (*Info, error) {
	version, count, err := p.scanner.Header()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrEmptyPackfile
	}

	if err := p.notifyHeader(count); err != nil {
		return nil, err
	}

	info := &Info{Version: version, Entries: make([]*EntryInfo, 0, count)}

	for i := uint32(0); i < count; i++ {
		oh, err := p.scanner.NextObjectHeader()
		if err != nil {
			return nil, err
		}

		entry := &EntryInfo{
			Offset:          oh.Offset,
			Type:            oh.Type,
			Size:            oh.Size,
			OffsetReference: oh.OffsetReference,
			Reference:       oh.Reference,
		}

		if err := p.notifyObjectHeader(oh); err != nil {
			return nil, err
		}

		if entry.IsDelta() {
			// The base chain isn't known yet; just discard the delta
			// instruction bytes to advance the scanner, keeping the CRC32
			// the scanner computed over the compressed entry.
			_, crc, err := p.scanner.NextObject(io.Discard)
			if err != nil {
				return nil, err
			}
			entry.CRC32 = crc
		} else {
			hasher := plumbing.NewHasher(oh.Type, oh.Size)
			n, crc, err := p.scanner.NextObject(hasher)
			if err != nil {
				return nil, err
			}
			if int64(n) != oh.Size {
				return nil, ErrPackMalformed
			}
			entry.CRC32 = crc
			entry.Hash = hasher.Sum()

			if err := p.notifyObjectContent(entry); err != nil {
				return nil, err
			}
		}

		info.Entries = append(info.Entries, entry)
	}

	checksum, err := p.scanner.Checksum()
	if err != nil {
		return nil, err
	}
	info.PackfileChecksum = checksum

	if err := p.notifyFooter(checksum); err != nil {
		return nil, err
	}

	return info, nil
}

func (p *Parser) notifyHeader(count uint32) error {
	for _, o := range p.observers {
		if err := o.OnHeader(count); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) notifyObjectHeader(oh *ObjectHeader) error {
	for _, o := range p.observers {
		if err := o.OnInflatedObjectHeader(oh.Type, oh.Size, oh.Offset); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) notifyObjectContent(e *EntryInfo) error {
	for _, o := range p.observers {
		if err := o.OnInflatedObjectContent(e.Hash, e.Offset, e.CRC32, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) notifyFooter(h plumbing.Hash) error {
	for _, o := range p.observers {
		if err := o.OnFooter(h); err != nil {
			return err
		}
	}
	return nil
}

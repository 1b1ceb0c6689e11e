package idxfile

import (
	"bytes"
	"io"

	gbinary "github.com/gitcas/gitcas/internal/binary"
	"github.com/gitcas/gitcas/plumbing"
)

// Decoder reads the v2 idx wire format into a MemoryIndex.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode populates idx from the decoder's stream.
func (d *Decoder) Decode(idx *MemoryIndex) error {
	for _, f := range []func(*MemoryIndex) error{
		d.readHeader,
		d.readFanout,
		d.readNames,
		d.readCRC32,
		d.readOffsets,
		d.readChecksums,
	} {
		if err := f(idx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) readHeader(idx *MemoryIndex) error {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return ErrInvalidIdxFile
	}
	if !bytes.Equal(buf[:4], header) {
		return ErrInvalidIdxFile
	}

	v, err := gbinary.ReadUint32(bytes.NewReader(buf[4:]))
	if err != nil {
		return ErrInvalidIdxFile
	}
	if v != VersionSupported {
		return ErrInvalidIdxFile
	}
	idx.Version = v
	return nil
}

func (d *Decoder) readFanout(idx *MemoryIndex) error {
	for i := 0; i < 256; i++ {
		v, err := gbinary.ReadUint32(d.r)
		if err != nil {
			return ErrInvalidIdxFile
		}
		idx.Fanout[i] = v
	}
	return nil
}

func (d *Decoder) readNames(idx *MemoryIndex) error {
	count := int(idx.Fanout[255])
	buf := make([]byte, count*plumbing.HashSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return ErrInvalidIdxFile
	}
	idx.Names = buf
	return nil
}

func (d *Decoder) readCRC32(idx *MemoryIndex) error {
	count := int(idx.Fanout[255])
	buf := make([]byte, count*crcSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return ErrInvalidIdxFile
	}
	idx.CRC32 = buf
	return nil
}

func (d *Decoder) readOffsets(idx *MemoryIndex) error {
	count := int(idx.Fanout[255])
	buf := make([]byte, count*offset32Size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return ErrInvalidIdxFile
	}
	idx.Offset32 = buf

	var numLarge int
	for i := 0; i < count; i++ {
		if be32(idx.Offset32, i)&is64BitsMask != 0 {
			numLarge++
		}
	}
	if numLarge == 0 {
		return nil
	}

	buf64 := make([]byte, numLarge*offset64Size)
	if _, err := io.ReadFull(d.r, buf64); err != nil {
		return ErrInvalidIdxFile
	}
	idx.Offset64 = buf64
	return nil
}

func (d *Decoder) readChecksums(idx *MemoryIndex) error {
	buf := make([]byte, plumbing.HashSize*2)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return ErrInvalidIdxFile
	}

	var pack, idxSum plumbing.Hash
	copy(pack[:], buf[:plumbing.HashSize])
	copy(idxSum[:], buf[plumbing.HashSize:])
	idx.PackfileChecksum = pack
	idx.IdxChecksum = idxSum
	return nil
}

package base

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	// MagicNumber identifies the file format ("vrdb" in hex)
	MagicNumber uint32 = 0x76726462

	FormatVersion uint16 = 1

	// metaSize is the encoded MetaPage record length
	metaSize = 4 + 2 + 2 + 8 + 8 + 8 + 4 + 4 + 8 + 8 + 8 + 8 + 8 + 8
)

// MetaPage is the database header record, stored in pages 0 and 1. The two
// copies alternate by TxID so a torn meta write can never destroy the last
// committed state; open picks the valid copy with the highest TxID.
type MetaPage struct {
	Magic    uint32
	Version  uint16
	PageSize uint16
	TxID     uint64
	NumPages uint64 // file allocation watermark

	// Projected tree state (see TreeStats.WriteRootHeader)
	Root          PageID
	Depth         uint32
	TreeFlags     uint32
	PageCount     uint64
	BranchPages   uint64
	LeafPages     uint64
	OverflowPages uint64
	EntryCount    uint64

	Checksum uint64
}

func (m *MetaPage) encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], m.Magic)
	binary.LittleEndian.PutUint16(b[4:6], m.Version)
	binary.LittleEndian.PutUint16(b[6:8], m.PageSize)
	binary.LittleEndian.PutUint64(b[8:16], m.TxID)
	binary.LittleEndian.PutUint64(b[16:24], m.NumPages)
	binary.LittleEndian.PutUint64(b[24:32], uint64(m.Root))
	binary.LittleEndian.PutUint32(b[32:36], m.Depth)
	binary.LittleEndian.PutUint32(b[36:40], m.TreeFlags)
	binary.LittleEndian.PutUint64(b[40:48], m.PageCount)
	binary.LittleEndian.PutUint64(b[48:56], m.BranchPages)
	binary.LittleEndian.PutUint64(b[56:64], m.LeafPages)
	binary.LittleEndian.PutUint64(b[64:72], m.OverflowPages)
	binary.LittleEndian.PutUint64(b[72:80], m.EntryCount)
	binary.LittleEndian.PutUint64(b[80:88], m.Checksum)
}

func (m *MetaPage) decode(b []byte) {
	m.Magic = binary.LittleEndian.Uint32(b[0:4])
	m.Version = binary.LittleEndian.Uint16(b[4:6])
	m.PageSize = binary.LittleEndian.Uint16(b[6:8])
	m.TxID = binary.LittleEndian.Uint64(b[8:16])
	m.NumPages = binary.LittleEndian.Uint64(b[16:24])
	m.Root = PageID(binary.LittleEndian.Uint64(b[24:32]))
	m.Depth = binary.LittleEndian.Uint32(b[32:36])
	m.TreeFlags = binary.LittleEndian.Uint32(b[36:40])
	m.PageCount = binary.LittleEndian.Uint64(b[40:48])
	m.BranchPages = binary.LittleEndian.Uint64(b[48:56])
	m.LeafPages = binary.LittleEndian.Uint64(b[56:64])
	m.OverflowPages = binary.LittleEndian.Uint64(b[64:72])
	m.EntryCount = binary.LittleEndian.Uint64(b[72:80])
	m.Checksum = binary.LittleEndian.Uint64(b[80:88])
}

// CalculateChecksum hashes every field except Checksum itself
func (m *MetaPage) CalculateChecksum() uint64 {
	var b [metaSize]byte
	m.encode(b[:])
	return xxhash.Sum64(b[:metaSize-8])
}

// WriteTo encodes the record into a page, checksum included
func (m *MetaPage) WriteTo(p *Page) {
	m.Checksum = m.CalculateChecksum()
	m.encode(p.buf[PageHeaderSize : PageHeaderSize+metaSize])
}

// ReadMeta decodes the record stored in a page
func ReadMeta(p *Page) *MetaPage {
	m := &MetaPage{}
	m.decode(p.buf[PageHeaderSize : PageHeaderSize+metaSize])
	return m
}

// Validate checks magic, version, page size and checksum
func (m *MetaPage) Validate() error {
	if m.Magic != MagicNumber {
		return ErrInvalidMagicNumber
	}
	if m.Version != FormatVersion {
		return ErrInvalidVersion
	}
	if m.PageSize != PageSize {
		return ErrInvalidPageSize
	}
	if m.Checksum != m.CalculateChecksum() {
		return ErrInvalidChecksum
	}
	return nil
}

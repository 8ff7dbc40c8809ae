package base

import (
	"encoding/binary"
)

const (
	PageSize = 4096

	// PageHeaderSize is the fixed header at the start of every page:
	// [PageID: 8][Flags: 2][NumEntries: 2][Upper: 2][Reserved: 2][TxID: 8][Reserved: 8]
	PageHeaderSize = 32

	// EntryHeaderSize precedes every entry's key bytes:
	// [Flags: 2][KeySize: 2][ValueSize: 4][ChildID: 8]
	EntryHeaderSize = 16

	// SlotSize is one entry offset in the slot array
	SlotSize = 2

	// PageMaxSpace is the usable byte capacity of a page
	PageMaxSpace = PageSize - PageHeaderSize

	// OverflowPageData is the payload capacity of one overflow page
	OverflowPageData = PageSize - PageHeaderSize
)

// Page type flags
const (
	LeafPageFlag     uint16 = 0x01
	BranchPageFlag   uint16 = 0x02
	OverflowPageFlag uint16 = 0x04

	pageKindMask = LeafPageFlag | BranchPageFlag | OverflowPageFlag
)

// Entry flags
const (
	// EntrySentinel marks the before-all-keys entry at slot 0 of a branch
	// page. Its key is empty and it orders before every real key.
	EntrySentinel uint16 = 0x01

	// EntryOverflow marks a leaf entry whose value lives in an overflow
	// page run instead of inline. Child holds the run's first page.
	EntryOverflow uint16 = 0x02
)

type PageID uint64

// Compare is a total order over keys. Sentinel entries are never passed
// through it; they order before everything structurally.
type Compare func(a, b []byte) int

// Page is one fixed-size unit of tree storage.
//
// LAYOUT:
// ┌────────────────────────────────────────────────────────────────────┐
// │ header (32 bytes)                                                  │
// ├────────────────────────────────────────────────────────────────────┤
// │ slot[0] slot[1] ... slot[N-1]   (2 bytes each, sorted key order)   │
// │ slots grow forward →                                               │
// ├────────────────────────────────────────────────────────────────────┤
// │ free space                                                         │
// ├────────────────────────────────────────────────────────────────────┤
// │ ← entry data packed backward from the end, 2-byte aligned          │
// │ entry = [Flags: 2][KeySize: 2][ValueSize: 4][ChildID: 8][key][val] │
// └────────────────────────────────────────────────────────────────────┘
//
// Entries are addressed only through bounds-checked views; offsets are
// validated before any interpretation of the buffer.
type Page struct {
	buf [PageSize]byte

	// LastSearchPos is the insertion index the most recent descent
	// computed for this page. Transient, never serialized.
	LastSearchPos int
}

// EntryView is a validated view of one entry. Key and Value alias the page
// buffer and stay valid only until the page is next mutated.
type EntryView struct {
	Flags     uint16
	Key       []byte
	Value     []byte // inline leaf payload; nil for branch and overflow entries
	Child     PageID // branch child page, or first page of an overflow run
	ValueSize uint32 // total payload length (== len(Value) when inline)
}

// Sentinel reports whether this is a branch page's before-all-keys entry
func (e *EntryView) Sentinel() bool { return e.Flags&EntrySentinel != 0 }

// Overflow reports whether the value lives out of line
func (e *EntryView) Overflow() bool { return e.Flags&EntryOverflow != 0 }

// EncodedSize returns the bytes this entry occupies on a page, slot included
func (e *EntryView) EncodedSize() int {
	return align2(EntryHeaderSize+len(e.Key)+len(e.Value)) + SlotSize
}

// LeafEntrySize returns the page bytes an inline leaf entry occupies
func LeafEntrySize(keyLen, valueLen int) int {
	return align2(EntryHeaderSize+keyLen+valueLen) + SlotSize
}

// BranchEntrySize returns the page bytes a branch entry occupies
func BranchEntrySize(keyLen int) int {
	return align2(EntryHeaderSize+keyLen) + SlotSize
}

func align2(n int) int {
	return (n + 1) &^ 1
}

// NewPage returns an initialized empty page
func NewPage(id PageID, flags uint16) *Page {
	p := &Page{}
	p.SetID(id)
	p.SetFlags(flags)
	p.setUpper(PageSize)
	return p
}

func (p *Page) ID() PageID        { return PageID(binary.LittleEndian.Uint64(p.buf[0:8])) }
func (p *Page) SetID(id PageID)   { binary.LittleEndian.PutUint64(p.buf[0:8], uint64(id)) }
func (p *Page) Flags() uint16     { return binary.LittleEndian.Uint16(p.buf[8:10]) }
func (p *Page) SetFlags(f uint16) { binary.LittleEndian.PutUint16(p.buf[8:10], f) }
func (p *Page) NumEntries() int   { return int(binary.LittleEndian.Uint16(p.buf[10:12])) }
func (p *Page) TxID() uint64      { return binary.LittleEndian.Uint64(p.buf[16:24]) }
func (p *Page) SetTxID(id uint64) { binary.LittleEndian.PutUint64(p.buf[16:24], id) }

func (p *Page) setNumEntries(n int) { binary.LittleEndian.PutUint16(p.buf[10:12], uint16(n)) }

func (p *Page) setUpper(u int) {
	// PageSize itself does not fit in a uint16; an empty page stores 0
	binary.LittleEndian.PutUint16(p.buf[12:14], uint16(u%PageSize))
}

func (p *Page) upperOffset() int {
	u := int(binary.LittleEndian.Uint16(p.buf[12:14]))
	if u == 0 {
		return PageSize
	}
	return u
}

func (p *Page) Kind() uint16   { return p.Flags() & pageKindMask }
func (p *Page) IsLeaf() bool   { return p.Flags()&LeafPageFlag != 0 }
func (p *Page) IsBranch() bool { return p.Flags()&BranchPageFlag != 0 }

// lower returns the first byte past the slot array
func (p *Page) lower() int {
	return PageHeaderSize + p.NumEntries()*SlotSize
}

func (p *Page) slot(i int) int {
	off := PageHeaderSize + i*SlotSize
	return int(binary.LittleEndian.Uint16(p.buf[off : off+SlotSize]))
}

func (p *Page) setSlot(i, v int) {
	off := PageHeaderSize + i*SlotSize
	binary.LittleEndian.PutUint16(p.buf[off:off+SlotSize], uint16(v))
}

// Entry returns a validated view of entry i
func (p *Page) Entry(i int) (EntryView, error) {
	if i < 0 || i >= p.NumEntries() {
		return EntryView{}, ErrInvalidOffset
	}
	off := p.slot(i)
	if off < p.lower() || off+EntryHeaderSize > PageSize {
		return EntryView{}, ErrCorruption
	}
	flags := binary.LittleEndian.Uint16(p.buf[off : off+2])
	keySize := int(binary.LittleEndian.Uint16(p.buf[off+2 : off+4]))
	valueSize := binary.LittleEndian.Uint32(p.buf[off+4 : off+8])
	child := PageID(binary.LittleEndian.Uint64(p.buf[off+8 : off+16]))

	keyStart := off + EntryHeaderSize
	keyEnd := keyStart + keySize
	if keyEnd > PageSize {
		return EntryView{}, ErrCorruption
	}

	e := EntryView{
		Flags:     flags,
		Key:       p.buf[keyStart:keyEnd:keyEnd],
		Child:     child,
		ValueSize: valueSize,
	}
	if p.IsLeaf() && flags&EntryOverflow == 0 {
		valEnd := keyEnd + int(valueSize)
		if valEnd > PageSize {
			return EntryView{}, ErrCorruption
		}
		e.Value = p.buf[keyEnd:valEnd:valEnd]
	}
	return e, nil
}

// EntrySizeAt returns the page bytes entry i occupies, slot included.
// The index must be a valid entry index.
func (p *Page) EntrySizeAt(i int) int {
	e, err := p.Entry(i)
	if err != nil {
		return 0
	}
	return e.EncodedSize()
}

// FreeSpace derives the remaining capacity from the live entries. It is
// recomputed on every call rather than cached, so it can never go stale
// across a multi-step split.
func (p *Page) FreeSpace() int {
	used := 0
	for i := 0; i < p.NumEntries(); i++ {
		used += p.EntrySizeAt(i)
	}
	return PageMaxSpace - used
}

// HasSpaceFor reports whether n more bytes of entry (slot included) fit
func (p *Page) HasSpaceFor(n int) bool {
	return p.FreeSpace() >= n
}

// InsertAt places e at index i, shifting later slots right. The caller is
// responsible for i being the key's sort position.
func (p *Page) InsertAt(i int, e EntryView) error {
	n := p.NumEntries()
	if i < 0 || i > n {
		return ErrInvalidOffset
	}
	dataSize := align2(EntryHeaderSize + len(e.Key) + len(e.Value))
	if p.FreeSpace() < dataSize+SlotSize {
		return ErrPageFull
	}

	off := p.upperOffset() - dataSize
	binary.LittleEndian.PutUint16(p.buf[off:off+2], e.Flags)
	binary.LittleEndian.PutUint16(p.buf[off+2:off+4], uint16(len(e.Key)))
	valueSize := e.ValueSize
	if e.Value != nil {
		valueSize = uint32(len(e.Value))
	}
	binary.LittleEndian.PutUint32(p.buf[off+4:off+8], valueSize)
	binary.LittleEndian.PutUint64(p.buf[off+8:off+16], uint64(e.Child))
	copy(p.buf[off+EntryHeaderSize:], e.Key)
	copy(p.buf[off+EntryHeaderSize+len(e.Key):], e.Value)

	// Shift slots [i, n) right by one
	slotStart := PageHeaderSize + i*SlotSize
	slotEnd := PageHeaderSize + n*SlotSize
	copy(p.buf[slotStart+SlotSize:slotEnd+SlotSize], p.buf[slotStart:slotEnd])
	p.setSlot(i, off)

	p.setNumEntries(n + 1)
	p.setUpper(off)
	return nil
}

// RemoveAt deletes entry i and compacts the data area
func (p *Page) RemoveAt(i int) error {
	n := p.NumEntries()
	if i < 0 || i >= n {
		return ErrInvalidOffset
	}
	slotStart := PageHeaderSize + i*SlotSize
	slotEnd := PageHeaderSize + n*SlotSize
	copy(p.buf[slotStart:], p.buf[slotStart+SlotSize:slotEnd])
	p.setNumEntries(n - 1)
	return p.compact()
}

// MoveTailTo appends entries [from, NumEntries) of p, in order, to the end
// of dst. The source page is left untouched; pair with Truncate.
func (p *Page) MoveTailTo(from int, dst *Page) error {
	n := p.NumEntries()
	if from < 0 || from > n {
		return ErrInvalidOffset
	}
	for i := from; i < n; i++ {
		e, err := p.Entry(i)
		if err != nil {
			return err
		}
		if err := dst.InsertAt(dst.NumEntries(), e); err != nil {
			return err
		}
	}
	return nil
}

// Truncate keeps the first n entries and compacts the data area so the
// reclaimed space is contiguous again
func (p *Page) Truncate(n int) error {
	if n < 0 || n > p.NumEntries() {
		return ErrInvalidOffset
	}
	p.setNumEntries(n)
	return p.compact()
}

// compact repacks the surviving entries' data to the end of the buffer
func (p *Page) compact() error {
	scratch := Page{}
	scratch.buf = p.buf
	scratch.setNumEntries(0)
	scratch.setUpper(PageSize)

	n := p.NumEntries()
	for i := 0; i < n; i++ {
		e, err := p.Entry(i)
		if err != nil {
			return err
		}
		if err := scratch.InsertAt(i, e); err != nil {
			return err
		}
	}
	p.buf = scratch.buf
	return nil
}

// SetChildAt rewrites entry i's child pointer in place. Used when a
// copy-on-write descent relocates a child page.
func (p *Page) SetChildAt(i int, id PageID) error {
	if i < 0 || i >= p.NumEntries() {
		return ErrInvalidOffset
	}
	off := p.slot(i)
	if off < p.lower() || off+EntryHeaderSize > PageSize {
		return ErrCorruption
	}
	binary.LittleEndian.PutUint64(p.buf[off+8:off+16], uint64(id))
	return nil
}

// ReplaceValueAt rewrites entry i with a new payload, preserving its key.
// Fails with ErrPageFull when the replacement does not fit.
func (p *Page) ReplaceValueAt(i int, e EntryView) error {
	old, err := p.Entry(i)
	if err != nil {
		return err
	}
	key := make([]byte, len(old.Key))
	copy(key, old.Key)
	if err := p.RemoveAt(i); err != nil {
		return err
	}
	e.Key = key
	return p.InsertAt(i, e)
}

// Clone returns a deep copy carrying a new page number, for copy-on-write
func (p *Page) Clone(id PageID) *Page {
	c := &Page{buf: p.buf, LastSearchPos: p.LastSearchPos}
	c.SetID(id)
	return c
}

// Buf exposes the raw page image for I/O. Callers must not retain it
// across mutations.
func (p *Page) Buf() []byte { return p.buf[:] }

// FromBuf copies a raw page image into an owned Page
func FromBuf(b []byte) (*Page, error) {
	if len(b) != PageSize {
		return nil, ErrInvalidPageSize
	}
	p := &Page{}
	copy(p.buf[:], b)
	return p, nil
}

// OverflowData returns the payload area of an overflow page
func (p *Page) OverflowData() []byte {
	return p.buf[PageHeaderSize:]
}

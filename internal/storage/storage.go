// Package storage provides the page I/O backends and the page manager
// that owns the database file's meta records.
package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"voron/internal/base"
)

// Backend reads and writes fixed-size pages at page-number offsets
type Backend interface {
	ReadPage(id base.PageID) (*base.Page, error)
	WritePage(id base.PageID, p *base.Page) error
	// WritePageRange writes len(buf)/PageSize contiguous pages starting
	// at id. buf must be a whole number of pages.
	WritePageRange(id base.PageID, buf []byte) error
	Sync() error
	Empty() (bool, error)
	Stats() Stats
	Close() error
}

// Stats holds I/O counters
type Stats struct {
	Reads   uint64
	Writes  uint64
	Read    uint64
	Written uint64
}

// File is the portable Backend using positional file I/O
type File struct {
	file *os.File

	reads   atomic.Uint64
	writes  atomic.Uint64
	read    atomic.Uint64
	written atomic.Uint64
}

// NewFile opens or creates a file-backed store
func NewFile(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	return &File{file: file}, nil
}

// ReadPage reads one page into an owned buffer
func (f *File) ReadPage(id base.PageID) (*base.Page, error) {
	buf := make([]byte, base.PageSize)
	offset := int64(id) * base.PageSize

	f.reads.Add(1)
	n, err := f.file.ReadAt(buf, offset)
	if err != nil {
		return nil, err
	}
	f.read.Add(uint64(n))
	if n != base.PageSize {
		return nil, fmt.Errorf("short read: got %d bytes, expected %d", n, base.PageSize)
	}
	return base.FromBuf(buf)
}

// WritePage writes one page at its offset
func (f *File) WritePage(id base.PageID, p *base.Page) error {
	offset := int64(id) * base.PageSize
	f.writes.Add(1)

	n, err := f.file.WriteAt(p.Buf(), offset)
	f.written.Add(uint64(n))
	if err != nil {
		return err
	}
	if n != base.PageSize {
		return fmt.Errorf("short write: wrote %d bytes, expected %d", n, base.PageSize)
	}
	return nil
}

// WritePageRange writes contiguous pages in one call
func (f *File) WritePageRange(id base.PageID, buf []byte) error {
	if len(buf)%base.PageSize != 0 {
		return fmt.Errorf("buffer size %d not multiple of page size %d", len(buf), base.PageSize)
	}
	offset := int64(id) * base.PageSize
	f.writes.Add(uint64(len(buf) / base.PageSize))

	n, err := f.file.WriteAt(buf, offset)
	f.written.Add(uint64(n))
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write: wrote %d bytes, expected %d", n, len(buf))
	}
	return nil
}

// Sync flushes buffered writes to disk
func (f *File) Sync() error {
	return f.file.Sync()
}

// Empty returns whether the file is newly created
func (f *File) Empty() (bool, error) {
	info, err := f.file.Stat()
	if err != nil {
		return false, err
	}
	return info.Size() == 0, nil
}

// Stats returns I/O counters
func (f *File) Stats() Stats {
	return Stats{
		Reads:   f.reads.Load(),
		Writes:  f.writes.Load(),
		Read:    f.read.Load(),
		Written: f.written.Load(),
	}
}

// Close closes the file
func (f *File) Close() error {
	return f.file.Close()
}

//go:build linux || darwin

package storage

import (
	"fmt"
	"os"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"voron/internal/base"
)

// MMap is the Backend using memory-mapped I/O. The file is kept sparse
// and grown in large chunks so remaps stay rare.
type MMap struct {
	file     *os.File
	mmapData []byte
	mmapSize int64
	empty    bool

	reads   atomic.Uint64
	writes  atomic.Uint64
	read    atomic.Uint64
	written atomic.Uint64
}

const mmapGrowth = 1 << 30 // 1GB

// NewMMap opens or creates a memory-mapped store
func NewMMap(path string) (*MMap, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	var empty bool
	size := info.Size()
	if size == 0 {
		size = mmapGrowth
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, err
		}
		empty = true
	}

	data, err := syscall.Mmap(int(file.Fd()), 0, int(size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &MMap{
		file:     file,
		mmapData: data,
		mmapSize: size,
		empty:    empty,
	}, nil
}

// ReadPage copies a page out of the mapped region. Copying instead of
// aliasing keeps the page valid across a later remap.
func (m *MMap) ReadPage(id base.PageID) (*base.Page, error) {
	if m.mmapData == nil {
		return nil, fmt.Errorf("storage closed")
	}
	offset := int64(id) * base.PageSize
	if offset+base.PageSize > m.mmapSize {
		return nil, fmt.Errorf("page %d beyond mapped region", id)
	}

	m.reads.Add(1)
	m.read.Add(base.PageSize)
	return base.FromBuf(m.mmapData[offset : offset+base.PageSize])
}

// grow remaps the region after extending the sparse file to cover minSize
func (m *MMap) grow(minSize int64) error {
	newSize := ((minSize + mmapGrowth - 1) / mmapGrowth) * mmapGrowth

	// Async flush first to shorten the munmap stall
	_ = unix.Msync(m.mmapData, unix.MS_ASYNC)

	if err := syscall.Munmap(m.mmapData); err != nil {
		return err
	}
	if err := m.file.Truncate(newSize); err != nil {
		return err
	}

	data, err := syscall.Mmap(int(m.file.Fd()), 0, int(newSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return err
	}

	m.mmapData = data
	m.mmapSize = newSize
	return nil
}

// WritePage copies a page into the mapped region
func (m *MMap) WritePage(id base.PageID, p *base.Page) error {
	if m.mmapData == nil {
		return fmt.Errorf("storage closed")
	}
	offset := int64(id) * base.PageSize
	if offset+base.PageSize > m.mmapSize {
		if err := m.grow(offset + base.PageSize); err != nil {
			return err
		}
	}

	m.writes.Add(1)
	copy(m.mmapData[offset:], p.Buf())
	m.written.Add(base.PageSize)
	return nil
}

// WritePageRange copies contiguous pages into the mapped region
func (m *MMap) WritePageRange(id base.PageID, buf []byte) error {
	if m.mmapData == nil {
		return fmt.Errorf("storage closed")
	}
	if len(buf)%base.PageSize != 0 {
		return fmt.Errorf("buffer size %d not multiple of page size %d", len(buf), base.PageSize)
	}

	offset := int64(id) * base.PageSize
	if offset+int64(len(buf)) > m.mmapSize {
		if err := m.grow(offset + int64(len(buf))); err != nil {
			return err
		}
	}

	m.writes.Add(uint64(len(buf) / base.PageSize))
	copy(m.mmapData[offset:], buf)
	m.written.Add(uint64(len(buf)))
	return nil
}

// Sync flushes the mapped region and the file
func (m *MMap) Sync() error {
	if err := unix.Msync(m.mmapData, unix.MS_SYNC); err != nil {
		return err
	}
	return m.file.Sync()
}

// Empty returns whether this is a newly created database
func (m *MMap) Empty() (bool, error) {
	return m.empty, nil
}

// Stats returns I/O counters
func (m *MMap) Stats() Stats {
	return Stats{
		Reads:   m.reads.Load(),
		Writes:  m.writes.Load(),
		Read:    m.read.Load(),
		Written: m.written.Load(),
	}
}

// Close unmaps the region and closes the file
func (m *MMap) Close() error {
	if m.mmapData != nil {
		if err := syscall.Munmap(m.mmapData); err != nil {
			return err
		}
		m.mmapData = nil
	}
	return m.file.Close()
}

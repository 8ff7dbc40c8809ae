package storage

import (
	"fmt"
	"sync"

	"voron/internal/base"
)

// Pages 0 and 1 hold the alternating meta records; tree pages start at 2
const (
	MetaPageCount    = 2
	FirstTreePage    = base.PageID(MetaPageCount)
	bootstrapNumPage = uint64(MetaPageCount) + 1
)

// Manager owns the database file's meta records and routes page I/O
// through a Backend. It bootstraps new files with an empty root leaf and
// recovers existing files by picking the newest valid meta copy.
type Manager struct {
	mu    sync.Mutex
	store Backend
	meta  base.MetaPage
}

// NewManager opens the store, initializing a new database when the file
// is empty
func NewManager(store Backend) (*Manager, error) {
	m := &Manager{store: store}

	empty, err := store.Empty()
	if err != nil {
		return nil, err
	}
	if empty {
		if err := m.bootstrap(); err != nil {
			return nil, err
		}
	} else {
		if err := m.recover(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// bootstrap writes an empty root leaf and both meta copies
func (m *Manager) bootstrap() error {
	root := base.NewPage(FirstTreePage, base.LeafPageFlag)
	if err := m.store.WritePage(root.ID(), root); err != nil {
		return err
	}

	m.meta = base.MetaPage{
		Magic:     base.MagicNumber,
		Version:   base.FormatVersion,
		PageSize:  base.PageSize,
		TxID:      0,
		NumPages:  bootstrapNumPage,
		Root:      root.ID(),
		Depth:     1,
		PageCount: 1,
		LeafPages: 1,
	}

	// Both copies start out valid so the first commit can overwrite
	// either slot without a recovery window
	for id := base.PageID(0); id < MetaPageCount; id++ {
		p := base.NewPage(id, 0)
		m.meta.WriteTo(p)
		if err := m.store.WritePage(id, p); err != nil {
			return err
		}
	}
	return m.store.Sync()
}

// recover loads both meta copies and keeps the valid one with the
// highest transaction number
func (m *Manager) recover() error {
	var best *base.MetaPage
	for id := base.PageID(0); id < MetaPageCount; id++ {
		p, err := m.store.ReadPage(id)
		if err != nil {
			continue
		}
		meta := base.ReadMeta(p)
		if meta.Validate() != nil {
			continue
		}
		if best == nil || meta.TxID > best.TxID {
			best = meta
		}
	}
	if best == nil {
		return fmt.Errorf("no valid meta page: %w", base.ErrCorruption)
	}
	m.meta = *best
	return nil
}

// Meta returns a copy of the current meta record
func (m *Manager) Meta() base.MetaPage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

// CommitMeta persists meta into the slot its TxID selects and makes it
// current. The caller must have written and synced the transaction's data
// pages first; the meta write is the commit point and the caller decides
// whether to sync it.
func (m *Manager) CommitMeta(meta base.MetaPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := base.NewPage(base.PageID(meta.TxID%MetaPageCount), 0)
	meta.WriteTo(p)
	if err := m.store.WritePage(p.ID(), p); err != nil {
		return err
	}
	m.meta = meta
	return nil
}

// ReadPage reads a tree page, rejecting reads past the allocation
// watermark
func (m *Manager) ReadPage(id base.PageID) (*base.Page, error) {
	m.mu.Lock()
	numPages := m.meta.NumPages
	m.mu.Unlock()

	if uint64(id) >= numPages {
		return nil, base.ErrInvalidOffset
	}
	return m.store.ReadPage(id)
}

// WritePage writes one tree page
func (m *Manager) WritePage(id base.PageID, p *base.Page) error {
	return m.store.WritePage(id, p)
}

// WritePageRange writes a contiguous run of pages in one call
func (m *Manager) WritePageRange(id base.PageID, buf []byte) error {
	return m.store.WritePageRange(id, buf)
}

// Sync flushes outstanding page writes
func (m *Manager) Sync() error {
	return m.store.Sync()
}

// Stats returns the backend's I/O counters
func (m *Manager) Stats() Stats {
	return m.store.Stats()
}

// Close closes the backend
func (m *Manager) Close() error {
	return m.store.Close()
}

// Package voron is an embedded key-value store built on a copy-on-write
// b+ tree. A single writer and any number of readers run concurrently;
// readers see the tree as of their transaction's start.
package voron

import (
	"sync"

	"voron/internal/base"
	"voron/internal/cache"
	"voron/internal/storage"
)

const (
	// MaxKeySize is the maximum length of a key, in bytes.
	// Set conservatively so branch pages hold a useful number of
	// separators. With 4KB pages, 1KB keys allow ~3 per branch page.
	MaxKeySize = 1024

	// MaxInlineValueSize is the largest value stored inside a leaf
	// page. Larger values go to a run of overflow pages and the leaf
	// entry keeps only the run reference.
	MaxInlineValueSize = 1024

	// MaxValueSize is the maximum length of a value, in bytes,
	// following bbolt's limit.
	MaxValueSize = (1 << 31) - 2
)

type DB struct {
	mu     sync.RWMutex
	pager  *storage.Manager
	cache  *cache.Cache
	opts   DBOptions
	log    Logger
	cmp    base.Compare
	closed bool

	// Committed state, replaced atomically under mu at commit
	meta  base.MetaPage
	stats *base.TreeStats

	// Writer serialization; held for the lifetime of a write transaction
	writer sync.Mutex
}

// Open opens or creates a database file
func Open(path string, options ...DBOption) (*DB, error) {
	opts := defaultDBOptions()
	for _, opt := range options {
		opt(&opts)
	}

	// Durable commits want explicit write-then-fsync ordering; with
	// sync off the mmap backend's throughput wins
	var backend storage.Backend
	var err error
	if opts.syncMode == SyncEveryCommit {
		backend, err = storage.NewFile(path)
	} else {
		backend, err = storage.NewMMap(path)
	}
	if err != nil {
		return nil, err
	}

	pager, err := storage.NewManager(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	pageCache, err := cache.New(opts.cacheSize)
	if err != nil {
		pager.Close()
		return nil, err
	}

	meta := pager.Meta()
	db := &DB{
		pager: pager,
		cache: pageCache,
		opts:  opts,
		log:   opts.logger,
		cmp:   opts.comparer,
		meta:  meta,
		stats: base.TreeStatsFromMeta(&meta),
	}

	db.log.Info("database opened",
		"path", path,
		"txid", meta.TxID,
		"root", uint64(meta.Root),
		"depth", meta.Depth,
		"entries", meta.EntryCount,
	)
	return db, nil
}

// Begin starts a transaction. A writable transaction holds the writer
// lock until Commit or Rollback; read transactions never block.
func (db *DB) Begin(writable bool) (*Tx, error) {
	if writable {
		db.writer.Lock()
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		if writable {
			db.writer.Unlock()
		}
		return nil, ErrDatabaseClosed
	}

	tx := &Tx{
		db:       db,
		writable: writable,
		meta:     db.meta,
		stats:    db.stats.Clone(),
		numPages: db.meta.NumPages,
	}
	if writable {
		tx.txID = db.meta.TxID + 1
		tx.pages = make(map[base.PageID]*base.Page)
	}
	return tx, nil
}

// View runs fn in a read-only transaction
func (db *DB) View(fn func(*Tx) error) error {
	tx, err := db.Begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}

// Update runs fn in a writable transaction, committing on success and
// rolling back on error
func (db *DB) Update(fn func(*Tx) error) error {
	tx, err := db.Begin(true)
	if err != nil {
		return err
	}
	// Rollback is a no-op after a successful Commit; deferring it also
	// releases the writer lock when Commit itself fails
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the value for key in a one-shot read transaction
func (db *DB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := db.View(func(tx *Tx) error {
		v, err := tx.Get(key)
		value = v
		return err
	})
	return value, err
}

// Set stores key to value in a one-shot write transaction
func (db *DB) Set(key, value []byte) error {
	return db.Update(func(tx *Tx) error {
		return tx.Set(key, value)
	})
}

// Delete removes key in a one-shot write transaction
func (db *DB) Delete(key []byte) error {
	return db.Update(func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// Stats is a snapshot of the committed tree's shape and the backing
// store's I/O counters
type Stats struct {
	TxID          uint64
	Root          uint64
	Depth         uint32
	PageCount     uint64
	BranchPages   uint64
	LeafPages     uint64
	OverflowPages uint64
	EntryCount    uint64

	IO    storage.Stats
	Cache cache.Stats
}

// Stats returns a snapshot of the database counters
func (db *DB) Stats() Stats {
	db.mu.RLock()
	meta := db.meta
	db.mu.RUnlock()

	return Stats{
		TxID:          meta.TxID,
		Root:          uint64(meta.Root),
		Depth:         meta.Depth,
		PageCount:     meta.PageCount,
		BranchPages:   meta.BranchPages,
		LeafPages:     meta.LeafPages,
		OverflowPages: meta.OverflowPages,
		EntryCount:    meta.EntryCount,

		IO:    db.pager.Stats(),
		Cache: db.cache.Stats(),
	}
}

// Close waits for the active writer and closes the file. In-flight read
// transactions fail on their next page miss.
func (db *DB) Close() error {
	db.writer.Lock()
	defer db.writer.Unlock()

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.cache.Purge()

	db.log.Info("database closed", "txid", db.meta.TxID)
	return db.pager.Close()
}

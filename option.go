package voron

import (
	"bytes"

	"voron/internal/algo"
	"voron/internal/base"
)

// SyncMode controls when database writes are fsynced to disk
type SyncMode int

const (
	// SyncEveryCommit fsyncs on every transaction commit. Uses
	// positional file I/O.
	// - Guarantees zero data loss on power failure
	// - Limited by fsync latency (typically 1-10ms per commit)
	// - Use for: Financial transactions, critical data
	SyncEveryCommit SyncMode = iota

	// SyncOff disables fsync entirely. Uses mmap I/O.
	// - Maximum throughput
	// - All unflushed data lost on crash
	// - Use for: Testing, bulk imports with external durability
	SyncOff
)

// DBOptions configures database behavior.
type DBOptions struct {
	syncMode  SyncMode
	cacheSize int // Max cached pages. 0 picks the default.
	maxPages  uint64

	comparer base.Compare
	logger   Logger

	// Split-scan tuning, see the page-split engine
	scanMinEntries  int
	scanSizeDivisor int
}

func defaultDBOptions() DBOptions {
	return DBOptions{
		syncMode:        SyncEveryCommit,
		cacheSize:       128 * 1024, // 512MB of 4KB pages
		maxPages:        1 << 32,
		comparer:        bytes.Compare,
		logger:          DiscardLogger{},
		scanMinEntries:  algo.DefaultScanMinEntries,
		scanSizeDivisor: algo.DefaultScanSizeDivisor,
	}
}

// DBOption configures database options using the functional options pattern.
type DBOption func(*DBOptions)

// WithSyncEveryCommit configures the database to fsync on every commit.
// This provides maximum durability (zero data loss) but lower throughput.
//
//goland:noinspection GoUnusedExportedFunction
func WithSyncEveryCommit() DBOption {
	return func(opts *DBOptions) {
		opts.syncMode = SyncEveryCommit
	}
}

// WithSyncOff disables fsync entirely.
// This provides maximum throughput but all unflushed data is lost on crash.
// Only use for testing or bulk loads where data can be reconstructed.
//
//goland:noinspection GoUnusedExportedFunction
func WithSyncOff() DBOption {
	return func(opts *DBOptions) {
		opts.syncMode = SyncOff
	}
}

// WithCacheSize sets the maximum number of pages held in the in-memory
// cache. Least recently used pages are evicted past the limit.
//
//goland:noinspection GoUnusedExportedFunction
func WithCacheSize(pages int) DBOption {
	return func(opts *DBOptions) {
		opts.cacheSize = pages
	}
}

// WithMaxPages caps the database file size in pages. Allocation past the
// cap fails the transaction with ErrOutOfSpace.
//
//goland:noinspection GoUnusedExportedFunction
func WithMaxPages(n uint64) DBOption {
	return func(opts *DBOptions) {
		opts.maxPages = n
	}
}

// WithComparer replaces the key order. All transactions against a
// database file must use the same comparer for its lifetime.
//
//goland:noinspection GoUnusedExportedFunction
func WithComparer(cmp func(a, b []byte) int) DBOption {
	return func(opts *DBOptions) {
		opts.comparer = cmp
	}
}

// WithLogger sets the logger for database events.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(l Logger) DBOption {
	return func(opts *DBOptions) {
		opts.logger = l
	}
}

// WithSplitScan tunes when a page split skips the byte-accurate scan:
// pages with at least minEntries entries take the midpoint directly for
// entries no larger than a sizeDivisor-th of the page capacity.
//
//goland:noinspection GoUnusedExportedFunction
func WithSplitScan(minEntries, sizeDivisor int) DBOption {
	return func(opts *DBOptions) {
		opts.scanMinEntries = minEntries
		opts.scanSizeDivisor = sizeDivisor
	}
}

// Package cache holds committed pages in memory so hot tree paths avoid
// disk reads. Pages are cached post-commit only; a transaction's dirty
// shadow pages never enter the cache until they are durable.
package cache

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/elastic/go-freelru"

	"voron/internal/base"
)

// MinCacheSize keeps enough room for a full root-to-leaf path plus
// concurrent readers
const MinCacheSize = 16

func hashPageID(id base.PageID) uint32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return uint32(xxhash.Sum64(b[:]))
}

// Cache is a sharded LRU over committed page images
type Cache struct {
	lru *freelru.SyncedLRU[base.PageID, *base.Page]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache holding at most size pages
func New(size int) (*Cache, error) {
	size = max(size, MinCacheSize)
	lru, err := freelru.NewSynced[base.PageID, *base.Page](uint32(size), hashPageID)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: lru}, nil
}

// Get returns the cached page image for id, if present
func (c *Cache) Get(id base.PageID) (*base.Page, bool) {
	p, ok := c.lru.Get(id)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return p, ok
}

// Put caches a committed page image, replacing any entry for id
func (c *Cache) Put(id base.PageID, p *base.Page) {
	c.lru.Add(id, p)
}

// Delete drops id from the cache
func (c *Cache) Delete(id base.PageID) {
	c.lru.Remove(id)
}

// Purge empties the cache
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats holds cache hit counters
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Stats returns cache hit counters
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

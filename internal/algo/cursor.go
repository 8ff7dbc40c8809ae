package algo

import (
	"voron/internal/base"
)

// Split-scan tuning defaults, configurable per database. See
// adjustSplitPosition for what they gate.
const (
	DefaultScanMinEntries  = 20
	DefaultScanSizeDivisor = 16
)

// Cursor is the write path's root-to-target page stack. The deepest page
// sits on top. After a split completes the top is the page holding the
// just-inserted entry, with a consistent parent chain below it.
type Cursor struct {
	stack []*base.Page
	stats *base.TreeStats

	// Split-scan tuning, copied from the database options
	ScanMinEntries  int
	ScanSizeDivisor int
}

// NewCursor returns an empty cursor recording page events into stats
func NewCursor(stats *base.TreeStats) *Cursor {
	return &Cursor{
		stats:           stats,
		ScanMinEntries:  DefaultScanMinEntries,
		ScanSizeDivisor: DefaultScanSizeDivisor,
	}
}

// Push makes p the current page
func (c *Cursor) Push(p *base.Page) {
	c.stack = append(c.stack, p)
}

// Pop removes and returns the current page
func (c *Cursor) Pop() *base.Page {
	if len(c.stack) == 0 {
		return nil
	}
	p := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return p
}

// Current returns the top of the stack without removing it
func (c *Cursor) Current() *base.Page {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// Len returns the number of pages on the stack
func (c *Cursor) Len() int { return len(c.stack) }

// Stats exposes the tree state this cursor mutates
func (c *Cursor) Stats() *base.TreeStats { return c.stats }

// RecordNewPage accounts for count freshly created pages of p's kind
func (c *Cursor) RecordNewPage(p *base.Page, count int) {
	c.stats.RecordNewPage(p, count)
}

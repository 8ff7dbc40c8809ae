package voron

import (
	"voron/internal/algo"
	"voron/internal/base"
)

// Cursor iterates the tree in key order within a transaction. Key and
// Value return copies, valid after the cursor moves on.
type Cursor struct {
	tx    *Tx
	stack []cursorFrame
	valid bool
	err   error
}

type cursorFrame struct {
	page *base.Page
	idx  int
}

// Cursor returns an iterator positioned before the first key
func (tx *Tx) Cursor() *Cursor {
	return &Cursor{tx: tx}
}

// First moves to the smallest key. Returns false on an empty tree.
func (c *Cursor) First() bool {
	c.stack = c.stack[:0]
	c.valid = false
	c.err = nil
	if c.tx.done {
		c.err = ErrTxClosed
		return false
	}
	return c.descendLeftmost(c.tx.stats.Root)
}

// descendLeftmost follows first entries down to a leaf
func (c *Cursor) descendLeftmost(id base.PageID) bool {
	p, err := c.tx.page(id)
	if err != nil {
		c.err = err
		return false
	}
	c.stack = append(c.stack, cursorFrame{page: p})
	if p.IsBranch() {
		e, err := p.Entry(0)
		if err != nil {
			c.err = err
			return false
		}
		return c.descendLeftmost(e.Child)
	}
	if p.NumEntries() == 0 {
		// Deletes can drain a leaf; skip it and keep going
		if len(c.stack) > 1 {
			return c.advance()
		}
		return false
	}
	c.valid = true
	return true
}

// Seek moves to the smallest key at or after target
func (c *Cursor) Seek(target []byte) bool {
	c.stack = c.stack[:0]
	c.valid = false
	c.err = nil
	if c.tx.done {
		c.err = ErrTxClosed
		return false
	}

	cmp := c.tx.db.cmp
	id := c.tx.stats.Root
	for {
		p, err := c.tx.page(id)
		if err != nil {
			c.err = err
			return false
		}
		if p.IsBranch() {
			idx := algo.FindChildIndex(p, target, cmp)
			c.stack = append(c.stack, cursorFrame{page: p, idx: idx})
			e, err := p.Entry(idx)
			if err != nil {
				c.err = err
				return false
			}
			id = e.Child
			continue
		}

		pos, _ := algo.FindInsertPos(p, target, cmp)
		c.stack = append(c.stack, cursorFrame{page: p, idx: pos})
		if pos >= p.NumEntries() {
			// Past this leaf's last key; the successor lives in the
			// next leaf over
			return c.advance()
		}
		c.valid = true
		return true
	}
}

// Next moves to the next key in order. Returns false past the last key.
func (c *Cursor) Next() bool {
	if !c.valid {
		return false
	}
	top := &c.stack[len(c.stack)-1]
	top.idx++
	if top.idx < top.page.NumEntries() {
		return true
	}
	return c.advance()
}

// advance pops exhausted frames and descends into the next subtree
func (c *Cursor) advance() bool {
	c.valid = false
	c.stack = c.stack[:len(c.stack)-1]
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		top.idx++
		if top.idx < top.page.NumEntries() {
			e, err := top.page.Entry(top.idx)
			if err != nil {
				c.err = err
				return false
			}
			return c.descendLeftmost(e.Child)
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	return false
}

// Valid reports whether the cursor is positioned on an entry
func (c *Cursor) Valid() bool { return c.valid }

// Err returns the I/O or corruption error that stopped iteration, if any
func (c *Cursor) Err() error { return c.err }

// Key returns a copy of the current key
func (c *Cursor) Key() []byte {
	e, ok := c.entry()
	if !ok {
		return nil
	}
	out := make([]byte, len(e.Key))
	copy(out, e.Key)
	return out
}

// Value returns a copy of the current value, reassembling overflow runs
func (c *Cursor) Value() []byte {
	e, ok := c.entry()
	if !ok {
		return nil
	}
	if e.Overflow() {
		v, err := c.tx.readOverflow(e.Child, e.ValueSize)
		if err != nil {
			c.err = err
			return nil
		}
		return v
	}
	out := make([]byte, len(e.Value))
	copy(out, e.Value)
	return out
}

func (c *Cursor) entry() (base.EntryView, bool) {
	if !c.valid {
		return base.EntryView{}, false
	}
	top := c.stack[len(c.stack)-1]
	e, err := top.page.Entry(top.idx)
	if err != nil {
		c.err = err
		return base.EntryView{}, false
	}
	return e, true
}

package voron

import (
	"sort"

	"voron/internal/algo"
	"voron/internal/base"
)

// Tx is a transaction over the tree. Writable transactions shadow every
// page they modify: a touched page is cloned under a fresh page number
// and all edits land on the clone, so the committed tree on disk is
// never modified in place. Commit writes the shadow pages, then flips
// the meta record; rollback just drops them.
type Tx struct {
	db       *DB
	writable bool
	done     bool

	meta  base.MetaPage
	stats *base.TreeStats
	txID  uint64

	// File allocation watermark, advanced locally so a rollback
	// abandons the pages it claimed
	numPages uint64

	// Dirty shadow pages by their new page number
	pages map[base.PageID]*base.Page
}

// NewPage allocates count contiguous pages at the watermark and returns
// the first. All pages in the run become dirty shadow pages.
func (tx *Tx) NewPage(flags uint16, count int) (*base.Page, error) {
	if tx.numPages+uint64(count) > tx.db.opts.maxPages {
		return nil, ErrOutOfSpace
	}
	first := base.PageID(tx.numPages)
	tx.numPages += uint64(count)

	for i := 0; i < count; i++ {
		p := base.NewPage(first+base.PageID(i), flags)
		p.SetTxID(tx.txID)
		tx.pages[p.ID()] = p
	}
	return tx.pages[first], nil
}

// page fetches a page image: dirty shadow first, then cache, then disk
func (tx *Tx) page(id base.PageID) (*base.Page, error) {
	if tx.pages != nil {
		if p, ok := tx.pages[id]; ok {
			return p, nil
		}
	}
	if p, ok := tx.db.cache.Get(id); ok {
		return p, nil
	}
	p, err := tx.db.pager.ReadPage(id)
	if err != nil {
		return nil, err
	}
	tx.db.cache.Put(id, p)
	return p, nil
}

// touch returns a shadow copy of p owned by this transaction, cloning
// it under a fresh page number on first touch
func (tx *Tx) touch(p *base.Page) (*base.Page, error) {
	if existing, ok := tx.pages[p.ID()]; ok && existing == p {
		return p, nil
	}
	if tx.numPages+1 > tx.db.opts.maxPages {
		return nil, ErrOutOfSpace
	}
	id := base.PageID(tx.numPages)
	tx.numPages++

	c := p.Clone(id)
	c.SetTxID(tx.txID)
	tx.pages[id] = c
	return c, nil
}

// descendForWrite walks root to leaf for key, shadowing every page on
// the path and rewiring each parent's child pointer to the clone. The
// branch pages end up on cur in root-first order; the leaf is returned
// off-stack, ready to be handed to the split engine if it is full.
func (tx *Tx) descendForWrite(cur *algo.Cursor, key []byte) (*base.Page, error) {
	p, err := tx.page(tx.stats.Root)
	if err != nil {
		return nil, err
	}
	p, err = tx.touch(p)
	if err != nil {
		return nil, err
	}
	tx.stats.Root = p.ID()

	for p.IsBranch() {
		idx := algo.FindChildIndex(p, key, tx.db.cmp)
		p.LastSearchPos = idx

		e, err := p.Entry(idx)
		if err != nil {
			return nil, err
		}
		child, err := tx.page(e.Child)
		if err != nil {
			return nil, err
		}
		child, err = tx.touch(child)
		if err != nil {
			return nil, err
		}
		if child.ID() != e.Child {
			if err := p.SetChildAt(idx, child.ID()); err != nil {
				return nil, err
			}
		}

		cur.Push(p)
		p = child
	}
	return p, nil
}

// newCursor builds a write cursor carrying this database's split tuning
func (tx *Tx) newCursor() *algo.Cursor {
	cur := algo.NewCursor(tx.stats)
	cur.ScanMinEntries = tx.db.opts.scanMinEntries
	cur.ScanSizeDivisor = tx.db.opts.scanSizeDivisor
	return cur
}

// Set stores key to value, replacing any existing value
func (tx *Tx) Set(key, value []byte) error {
	if tx.done {
		return ErrTxClosed
	}
	if !tx.writable {
		return ErrTxReadOnly
	}
	if len(key) == 0 {
		return ErrKeyEmpty
	}
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}

	cur := tx.newCursor()
	leaf, err := tx.descendForWrite(cur, key)
	if err != nil {
		return err
	}

	pos, exact := algo.FindInsertPos(leaf, key, tx.db.cmp)
	if exact {
		// Replace as remove-then-insert so the new value can change
		// representation, inline to overflow or back
		if err := leaf.RemoveAt(pos); err != nil {
			return err
		}
		tx.stats.EntryCount--
	}

	e := base.EntryView{Key: key, Value: value}
	if len(value) > MaxInlineValueSize {
		e, err = tx.writeOverflow(key, value)
		if err != nil {
			return err
		}
	}

	leaf.LastSearchPos = pos
	if leaf.HasSpaceFor(e.EncodedSize()) {
		if err := leaf.InsertAt(pos, e); err != nil {
			return err
		}
	} else {
		if _, err := algo.Split(tx, tx.db.cmp, cur, leaf, e); err != nil {
			return err
		}
	}

	tx.stats.EntryCount++
	return nil
}

// writeOverflow spills value into a contiguous run of overflow pages
// and returns the leaf entry referencing the run
func (tx *Tx) writeOverflow(key, value []byte) (base.EntryView, error) {
	count := (len(value) + base.OverflowPageData - 1) / base.OverflowPageData
	first, err := tx.NewPage(base.OverflowPageFlag, count)
	if err != nil {
		return base.EntryView{}, err
	}
	tx.stats.RecordNewPage(first, count)

	remaining := value
	for i := 0; i < count; i++ {
		p := tx.pages[first.ID()+base.PageID(i)]
		n := copy(p.OverflowData(), remaining)
		remaining = remaining[n:]
	}

	return base.EntryView{
		Flags:     base.EntryOverflow,
		Key:       key,
		Child:     first.ID(),
		ValueSize: uint32(len(value)),
	}, nil
}

// readOverflow reassembles a value from its overflow page run
func (tx *Tx) readOverflow(first base.PageID, size uint32) ([]byte, error) {
	out := make([]byte, 0, size)
	for id := first; uint32(len(out)) < size; id++ {
		p, err := tx.page(id)
		if err != nil {
			return nil, err
		}
		chunk := p.OverflowData()
		if rest := size - uint32(len(out)); rest < uint32(len(chunk)) {
			chunk = chunk[:rest]
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Get returns a copy of the value stored for key
func (tx *Tx) Get(key []byte) ([]byte, error) {
	if tx.done {
		return nil, ErrTxClosed
	}
	if len(key) == 0 {
		return nil, ErrKeyEmpty
	}

	p, err := tx.page(tx.stats.Root)
	if err != nil {
		return nil, err
	}
	for p.IsBranch() {
		idx := algo.FindChildIndex(p, key, tx.db.cmp)
		e, err := p.Entry(idx)
		if err != nil {
			return nil, err
		}
		p, err = tx.page(e.Child)
		if err != nil {
			return nil, err
		}
	}

	i := algo.FindKeyInLeaf(p, key, tx.db.cmp)
	if i < 0 {
		return nil, ErrKeyNotFound
	}
	e, err := p.Entry(i)
	if err != nil {
		return nil, err
	}
	if e.Overflow() {
		return tx.readOverflow(e.Child, e.ValueSize)
	}
	out := make([]byte, len(e.Value))
	copy(out, e.Value)
	return out, nil
}

// Delete removes key from its leaf. Leaves are not rebalanced; an
// underfull page fills back up on later inserts.
func (tx *Tx) Delete(key []byte) error {
	if tx.done {
		return ErrTxClosed
	}
	if !tx.writable {
		return ErrTxReadOnly
	}
	if len(key) == 0 {
		return ErrKeyEmpty
	}

	cur := tx.newCursor()
	leaf, err := tx.descendForWrite(cur, key)
	if err != nil {
		return err
	}

	i := algo.FindKeyInLeaf(leaf, key, tx.db.cmp)
	if i < 0 {
		return ErrKeyNotFound
	}
	if err := leaf.RemoveAt(i); err != nil {
		return err
	}
	tx.stats.EntryCount--
	return nil
}

// Commit writes the shadow pages, then the meta record. The meta write
// is the commit point; a crash before it leaves the previous
// transaction intact. On error the transaction stays open and the
// caller must Rollback to release the writer lock; no shadow page is
// visible to readers either way.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxClosed
	}
	if !tx.writable {
		return ErrTxReadOnly
	}
	db := tx.db
	sync := db.opts.syncMode == SyncEveryCommit

	// Sorted order keeps the I/O sequential for append-heavy commits
	ids := make([]base.PageID, 0, len(tx.pages))
	for id := range tx.pages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// Contiguous runs (overflow spills, split bursts) go out in one
	// write each
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && ids[j] == ids[j-1]+1 {
			j++
		}
		if j-i == 1 {
			if err := db.pager.WritePage(ids[i], tx.pages[ids[i]]); err != nil {
				return err
			}
		} else {
			buf := make([]byte, (j-i)*base.PageSize)
			for k := i; k < j; k++ {
				copy(buf[(k-i)*base.PageSize:], tx.pages[ids[k]].Buf())
			}
			if err := db.pager.WritePageRange(ids[i], buf); err != nil {
				return err
			}
		}
		i = j
	}
	if sync {
		if err := db.pager.Sync(); err != nil {
			return err
		}
	}

	m := tx.meta
	m.TxID = tx.txID
	m.NumPages = tx.numPages
	tx.stats.WriteRootHeader(&m)
	if err := db.pager.CommitMeta(m); err != nil {
		return err
	}
	if sync {
		if err := db.pager.Sync(); err != nil {
			return err
		}
	}

	db.mu.Lock()
	db.meta = m
	db.stats = tx.stats
	db.mu.Unlock()

	// Shadow pages are committed now and safe to share with readers
	for _, id := range ids {
		db.cache.Put(id, tx.pages[id])
	}

	db.log.Info("transaction committed",
		"txid", m.TxID,
		"pages", len(ids),
		"root", uint64(m.Root),
		"depth", m.Depth,
	)

	tx.done = true
	tx.pages = nil
	db.writer.Unlock()
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op
// so it is safe to defer.
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.pages = nil
	if tx.writable {
		tx.db.writer.Unlock()
	}
	return nil
}

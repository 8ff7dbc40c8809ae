package algo

import (
	"voron/internal/base"
)

// Allocator produces fresh pages for the split engine. NewPage returns the
// first of count contiguous pages, initialized with flags. Exhaustion is
// fatal and aborts the enclosing transaction.
type Allocator interface {
	NewPage(flags uint16, count int) (*base.Page, error)
}

// Split divides page, which has no room for e, into two pages, installs a
// separator in the parent (splitting ancestors as needed, growing the tree
// through a new root when the cascade reaches it), and inserts e on the
// correct side. The caller must have popped page off cur; Split pushes the
// page that received e back as the new current page and returns it.
//
// e carries a payload for leaf insertions, or a child reference and no
// payload when a separator cascades into a branch level.
func Split(alloc Allocator, cmp base.Compare, cur *Cursor, page *base.Page, e base.EntryView) (*base.Page, error) {
	right, err := alloc.NewPage(page.Kind(), 1)
	if err != nil {
		return nil, err
	}
	cur.RecordNewPage(right, 1)

	if cur.Len() == 0 {
		// page was the root: grow the tree with a new branch root whose
		// first entry is the before-all-keys sentinel pointing at page
		root, err := alloc.NewPage(base.BranchPageFlag, 1)
		if err != nil {
			return nil, err
		}
		cur.RecordNewPage(root, 1)
		cur.Stats().Root = root.ID()
		cur.Stats().Depth++

		sentinel := base.EntryView{Flags: base.EntrySentinel, Child: page.ID()}
		if err := root.InsertAt(0, sentinel); err != nil {
			return nil, err
		}
		root.LastSearchPos = 1
		cur.Push(root)
	}

	if page.LastSearchPos >= page.NumEntries() {
		// Sequential append: the new key sorts after everything here, so
		// leave this page full and start the right sibling with just the
		// new entry instead of splitting half-empty
		if err := addSeparator(alloc, cmp, cur, e.Key, right.ID()); err != nil {
			return nil, err
		}
		if err := right.InsertAt(0, e); err != nil {
			return nil, err
		}
		right.LastSearchPos = 0
		cur.Push(right)
		return right, nil
	}

	return splitInHalf(alloc, cmp, cur, page, right, e)
}

// addSeparator installs a sepKey entry referencing rightID into the
// current parent page. A
// parent without room for it is itself split, with the separator as the
// new entry; the cascade continues upward until an ancestor has room or a
// new root is created.
func addSeparator(alloc Allocator, cmp base.Compare, cur *Cursor, sepKey []byte, rightID base.PageID) error {
	parent := cur.Current()
	ref := base.EntryView{Key: sepKey, Child: rightID}

	pos, _ := FindInsertPos(parent, sepKey, cmp)
	if !parent.HasSpaceFor(base.BranchEntrySize(len(sepKey))) {
		cur.Pop()
		parent.LastSearchPos = pos
		_, err := Split(alloc, cmp, cur, parent, ref)
		return err
	}

	return parent.InsertAt(pos, ref)
}

// splitInHalf relocates the tail of page onto right around a split index
// chosen near the entry-count midpoint, then inserts e on whichever side
// its position falls.
func splitInHalf(alloc Allocator, cmp base.Compare, cur *Cursor, page, right *base.Page, e base.EntryView) (*base.Page, error) {
	currentIndex := page.LastSearchPos
	splitIndex := page.NumEntries() / 2
	newPosition := currentIndex >= splitIndex

	// Variable-length entries can make the count midpoint land far from
	// the byte midpoint; leaves re-derive an index that guarantees the
	// receiving side has room. Branch entries are small and uniform
	// enough that the midpoint always does.
	if page.IsLeaf() {
		splitIndex, newPosition = adjustSplitPosition(cur, page, e.EncodedSize(), currentIndex, splitIndex, newPosition)
	}

	var sepKey []byte
	if currentIndex == splitIndex && newPosition {
		// The new entry will be the right page's first: its own key
		// separates the halves
		sepKey = e.Key
	} else {
		sep, err := page.Entry(splitIndex)
		if err != nil {
			return nil, err
		}
		sepKey = sep.Key
	}

	// Propagate before relocating: the cascade must see the separator
	// while page still holds all its entries
	if err := addSeparator(alloc, cmp, cur, sepKey, right.ID()); err != nil {
		return nil, err
	}

	if err := page.MoveTailTo(splitIndex, right); err != nil {
		return nil, err
	}
	if err := page.Truncate(splitIndex); err != nil {
		return nil, err
	}

	if currentIndex > splitIndex || (currentIndex == splitIndex && newPosition) {
		pos, _ := FindInsertPos(right, e.Key, cmp)
		if err := right.InsertAt(pos, e); err != nil {
			return nil, err
		}
		right.LastSearchPos = pos
		cur.Push(right)
		return right, nil
	}

	if err := page.InsertAt(currentIndex, e); err != nil {
		return nil, err
	}
	page.LastSearchPos = currentIndex
	cur.Push(page)
	return page, nil
}

// adjustSplitPosition moves splitIndex away from the count midpoint when
// the side receiving the new entry would otherwise be left without room
// for it. It scans over the half that receives the new entry,
// accumulating entry sizes (padded to even totals) on top of the new
// entry's own size, and stops at the first index where that side would
// overflow the page's capacity.
func adjustSplitPosition(cur *Cursor, page *base.Page, entrySize, currentIndex, splitIndex int, newPosition bool) (int, bool) {
	// A small entry in an already well-populated page cannot break the
	// midpoint split; skip the scan
	if page.NumEntries() >= cur.ScanMinEntries && entrySize <= base.PageMaxSpace/cur.ScanSizeDivisor {
		return splitIndex, newPosition
	}

	// At currentIndex == splitIndex the entry becomes the right page's
	// first (newPosition holds there), so only a strictly smaller
	// position grows the left half
	pageSize := entrySize
	if currentIndex < splitIndex {
		// New entry lands on the left: grow from the page start
		for i := 0; i < splitIndex; i++ {
			pageSize += pageSize & 1
			pageSize += page.EntrySizeAt(i)
			if pageSize > base.PageMaxSpace {
				if i <= currentIndex {
					if i < currentIndex {
						newPosition = true
					}
					return currentIndex, newPosition
				}
				return i, newPosition
			}
		}
	} else {
		// New entry lands on the right: grow from the page end
		for i := page.NumEntries() - 1; i >= splitIndex; i-- {
			pageSize += pageSize & 1
			pageSize += page.EntrySizeAt(i)
			if pageSize > base.PageMaxSpace {
				if i >= currentIndex {
					return currentIndex, false
				}
				return i + 1, newPosition
			}
		}
	}

	return splitIndex, newPosition
}

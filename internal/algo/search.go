// Package algo contains the algorithms that traverse and edit the b+ tree:
// position search, the write-path cursor, and the page-split engine.
package algo

import (
	"sort"

	"voron/internal/base"
)

// Below this many entries a linear scan beats the binary search setup cost
const searchThreshold = 32

// compareEntryKey orders entry i of p against key. Sentinel entries order
// before every real key and are never compared by value.
func compareEntryKey(p *base.Page, i int, key []byte, cmp base.Compare) int {
	e, err := p.Entry(i)
	if err != nil || e.Sentinel() {
		return -1
	}
	return cmp(e.Key, key)
}

// FindInsertPos returns the index where key belongs in p and whether an
// entry with that exact key is already there
func FindInsertPos(p *base.Page, key []byte, cmp base.Compare) (int, bool) {
	n := p.NumEntries()

	var pos int
	if n < searchThreshold {
		pos = 0
		for pos < n && compareEntryKey(p, pos, key, cmp) < 0 {
			pos++
		}
	} else {
		pos = sort.Search(n, func(i int) bool {
			return compareEntryKey(p, i, key, cmp) >= 0
		})
	}

	exact := pos < n && compareEntryKey(p, pos, key, cmp) == 0
	return pos, exact
}

// FindChildIndex returns the index of the child entry to follow for key in
// a branch page: the greatest entry whose key is at or below key. Entry 0
// is the floor even when key sorts before it.
func FindChildIndex(p *base.Page, key []byte, cmp base.Compare) int {
	n := p.NumEntries()

	var pos int
	if n < searchThreshold {
		pos = 0
		for pos < n && compareEntryKey(p, pos, key, cmp) <= 0 {
			pos++
		}
	} else {
		pos = sort.Search(n, func(i int) bool {
			return compareEntryKey(p, i, key, cmp) > 0
		})
	}

	if pos == 0 {
		return 0
	}
	return pos - 1
}

// FindKeyInLeaf returns the index of key in a leaf page, or -1
func FindKeyInLeaf(p *base.Page, key []byte, cmp base.Compare) int {
	pos, exact := FindInsertPos(p, key, cmp)
	if !exact {
		return -1
	}
	return pos
}

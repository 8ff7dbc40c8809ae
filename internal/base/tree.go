package base

// TreeStats is the tree's mutable aggregate state: page counts per kind,
// depth, entry count and the root page number. The split engine reports
// page creations into it through the cursor; the committing transaction
// projects it into the root header record of the meta page.
type TreeStats struct {
	Root          PageID
	Depth         uint32
	Flags         uint32
	PageCount     uint64
	BranchPages   uint64
	LeafPages     uint64
	OverflowPages uint64
	EntryCount    uint64
}

// Clone returns an independent copy, used to snapshot the counters for
// isolation across a transaction boundary
func (s *TreeStats) Clone() *TreeStats {
	c := *s
	return &c
}

// RecordNewPage accounts for count freshly allocated pages of p's kind
func (s *TreeStats) RecordNewPage(p *Page, count int) {
	switch p.Kind() {
	case BranchPageFlag:
		s.BranchPages += uint64(count)
	case LeafPageFlag:
		s.LeafPages += uint64(count)
	case OverflowPageFlag:
		s.OverflowPages += uint64(count)
	}
	s.PageCount += uint64(count)
}

// WriteRootHeader projects every counter and the flags field verbatim into
// the persisted meta record
func (s *TreeStats) WriteRootHeader(m *MetaPage) {
	m.Root = s.Root
	m.Depth = s.Depth
	m.TreeFlags = s.Flags
	m.PageCount = s.PageCount
	m.BranchPages = s.BranchPages
	m.LeafPages = s.LeafPages
	m.OverflowPages = s.OverflowPages
	m.EntryCount = s.EntryCount
}

// TreeStatsFromMeta rebuilds the in-memory state from a persisted record
func TreeStatsFromMeta(m *MetaPage) *TreeStats {
	return &TreeStats{
		Root:          m.Root,
		Depth:         m.Depth,
		Flags:         m.TreeFlags,
		PageCount:     m.PageCount,
		BranchPages:   m.BranchPages,
		LeafPages:     m.LeafPages,
		OverflowPages: m.OverflowPages,
		EntryCount:    m.EntryCount,
	}
}

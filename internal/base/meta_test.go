package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMeta() MetaPage {
	return MetaPage{
		Magic:       MagicNumber,
		Version:     FormatVersion,
		PageSize:    PageSize,
		TxID:        12,
		NumPages:    40,
		Root:        17,
		Depth:       3,
		PageCount:   30,
		BranchPages: 4,
		LeafPages:   24,
		EntryCount:  5000,
	}
}

func TestMetaRoundTrip(t *testing.T) {
	m := validMeta()
	p := NewPage(0, 0)
	m.WriteTo(p)

	got := ReadMeta(p)
	require.NoError(t, got.Validate())
	assert.Equal(t, m.TxID, got.TxID)
	assert.Equal(t, m.NumPages, got.NumPages)
	assert.Equal(t, m.Root, got.Root)
	assert.Equal(t, m.Depth, got.Depth)
	assert.Equal(t, m.EntryCount, got.EntryCount)
}

func TestMetaValidateRejectsCorruption(t *testing.T) {
	m := validMeta()
	m.Checksum = m.CalculateChecksum()
	require.NoError(t, m.Validate())

	bad := m
	bad.Magic = 0xdeadbeef
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMagicNumber)

	bad = m
	bad.Version = 99
	assert.ErrorIs(t, bad.Validate(), ErrInvalidVersion)

	bad = m
	bad.PageSize = 512
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPageSize)

	bad = m
	bad.Root = 99 // field changed after checksum
	assert.ErrorIs(t, bad.Validate(), ErrInvalidChecksum)
}

func TestTreeStatsProjection(t *testing.T) {
	s := &TreeStats{
		Root:          9,
		Depth:         2,
		Flags:         7,
		PageCount:     11,
		BranchPages:   1,
		LeafPages:     8,
		OverflowPages: 2,
		EntryCount:    321,
	}

	var m MetaPage
	s.WriteRootHeader(&m)
	assert.Equal(t, PageID(9), m.Root)
	assert.Equal(t, uint32(2), m.Depth)
	assert.Equal(t, uint32(7), m.TreeFlags)
	assert.Equal(t, uint64(11), m.PageCount)
	assert.Equal(t, uint64(2), m.OverflowPages)

	back := TreeStatsFromMeta(&m)
	assert.Equal(t, s, back)
}

func TestTreeStatsCloneIsolation(t *testing.T) {
	s := &TreeStats{Root: 2, Depth: 1, LeafPages: 1, PageCount: 1}
	c := s.Clone()
	c.RecordNewPage(NewPage(3, BranchPageFlag), 1)
	c.RecordNewPage(NewPage(4, OverflowPageFlag), 4)

	assert.Equal(t, uint64(1), s.PageCount)
	assert.Equal(t, uint64(6), c.PageCount)
	assert.Equal(t, uint64(1), c.BranchPages)
	assert.Equal(t, uint64(4), c.OverflowPages)
}

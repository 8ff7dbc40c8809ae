package base

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageInsertAndRead(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	require.True(t, p.IsLeaf())
	require.Equal(t, 0, p.NumEntries())
	require.Equal(t, PageMaxSpace, p.FreeSpace())

	for i := 0; i < 10; i++ {
		e := EntryView{
			Key:   []byte(fmt.Sprintf("key-%02d", i)),
			Value: []byte(fmt.Sprintf("value-%02d", i)),
		}
		require.NoError(t, p.InsertAt(i, e))
	}
	require.Equal(t, 10, p.NumEntries())

	for i := 0; i < 10; i++ {
		e, err := p.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("key-%02d", i), string(e.Key))
		assert.Equal(t, fmt.Sprintf("value-%02d", i), string(e.Value))
		assert.False(t, e.Sentinel())
		assert.False(t, e.Overflow())
	}

	_, err := p.Entry(10)
	assert.ErrorIs(t, err, ErrInvalidOffset)
	_, err = p.Entry(-1)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestPageInsertShiftsSlots(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	require.NoError(t, p.InsertAt(0, EntryView{Key: []byte("a"), Value: []byte("1")}))
	require.NoError(t, p.InsertAt(1, EntryView{Key: []byte("c"), Value: []byte("3")}))

	// Insert between the two
	require.NoError(t, p.InsertAt(1, EntryView{Key: []byte("b"), Value: []byte("2")}))

	var keys []string
	for i := 0; i < p.NumEntries(); i++ {
		e, err := p.Entry(i)
		require.NoError(t, err)
		keys = append(keys, string(e.Key))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestPageFreeSpaceAccounting(t *testing.T) {
	p := NewPage(2, LeafPageFlag)

	used := 0
	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%03d", i))
		value := bytes.Repeat([]byte("v"), i*7)
		require.NoError(t, p.InsertAt(i, EntryView{Key: key, Value: value}))
		used += LeafEntrySize(len(key), len(value))
	}
	assert.Equal(t, PageMaxSpace-used, p.FreeSpace())
	assert.True(t, p.HasSpaceFor(p.FreeSpace()))
	assert.False(t, p.HasSpaceFor(p.FreeSpace()+1))
}

func TestPageFullRejectsInsert(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	value := bytes.Repeat([]byte("v"), 500)

	i := 0
	for {
		e := EntryView{Key: []byte(fmt.Sprintf("key-%03d", i)), Value: value}
		if !p.HasSpaceFor(e.EncodedSize()) {
			require.ErrorIs(t, p.InsertAt(p.NumEntries(), e), ErrPageFull)
			break
		}
		require.NoError(t, p.InsertAt(i, e))
		i++
	}
	require.Greater(t, i, 1)
}

func TestPageRemoveCompacts(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	for i := 0; i < 8; i++ {
		e := EntryView{
			Key:   []byte(fmt.Sprintf("key-%02d", i)),
			Value: bytes.Repeat([]byte("v"), 400),
		}
		require.NoError(t, p.InsertAt(i, e))
	}

	free := p.FreeSpace()
	removedSize := p.EntrySizeAt(3)
	require.NoError(t, p.RemoveAt(3))
	require.Equal(t, 7, p.NumEntries())
	assert.Equal(t, free+removedSize, p.FreeSpace())

	// Compaction must leave the reclaimed space usable as one block
	big := EntryView{
		Key:   []byte("big"),
		Value: bytes.Repeat([]byte("x"), p.FreeSpace()-LeafEntrySize(3, 0)),
	}
	require.NoError(t, p.InsertAt(0, big))

	e, err := p.Entry(1)
	require.NoError(t, err)
	assert.Equal(t, "key-00", string(e.Key))
}

func TestPageMoveTailAndTruncate(t *testing.T) {
	src := NewPage(2, LeafPageFlag)
	dst := NewPage(3, LeafPageFlag)
	for i := 0; i < 10; i++ {
		e := EntryView{Key: []byte(fmt.Sprintf("key-%02d", i)), Value: []byte("v")}
		require.NoError(t, src.InsertAt(i, e))
	}

	require.NoError(t, src.MoveTailTo(6, dst))
	require.NoError(t, src.Truncate(6))

	require.Equal(t, 6, src.NumEntries())
	require.Equal(t, 4, dst.NumEntries())
	for i := 0; i < 4; i++ {
		e, err := dst.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("key-%02d", i+6), string(e.Key))
	}

	// Truncation reclaims the moved entries' space
	assert.Greater(t, src.FreeSpace(), PageMaxSpace/2)
}

func TestBranchPageSentinelEntry(t *testing.T) {
	p := NewPage(5, BranchPageFlag)
	require.True(t, p.IsBranch())

	require.NoError(t, p.InsertAt(0, EntryView{Flags: EntrySentinel, Child: 7}))
	require.NoError(t, p.InsertAt(1, EntryView{Key: []byte("m"), Child: 9}))

	e, err := p.Entry(0)
	require.NoError(t, err)
	assert.True(t, e.Sentinel())
	assert.Empty(t, e.Key)
	assert.Equal(t, PageID(7), e.Child)
	assert.Nil(t, e.Value)

	require.NoError(t, p.SetChildAt(0, 11))
	e, err = p.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, PageID(11), e.Child)
	assert.True(t, e.Sentinel(), "rewriting the child must not clear flags")
}

func TestOverflowEntryCarriesSizeNotValue(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	e := EntryView{
		Flags:     EntryOverflow,
		Key:       []byte("big"),
		Child:     42,
		ValueSize: 100000,
	}
	require.NoError(t, p.InsertAt(0, e))

	got, err := p.Entry(0)
	require.NoError(t, err)
	assert.True(t, got.Overflow())
	assert.Nil(t, got.Value)
	assert.Equal(t, uint32(100000), got.ValueSize)
	assert.Equal(t, PageID(42), got.Child)
}

func TestReplaceValueAtKeepsKey(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	require.NoError(t, p.InsertAt(0, EntryView{Key: []byte("a"), Value: []byte("old")}))
	require.NoError(t, p.InsertAt(1, EntryView{Key: []byte("b"), Value: []byte("x")}))

	require.NoError(t, p.ReplaceValueAt(0, EntryView{Value: []byte("new-longer-value")}))

	e, err := p.Entry(0)
	require.NoError(t, err)
	assert.Equal(t, "a", string(e.Key))
	assert.Equal(t, "new-longer-value", string(e.Value))
}

func TestPageRoundTripThroughBuf(t *testing.T) {
	p := NewPage(9, LeafPageFlag)
	p.SetTxID(77)
	for i := 0; i < 5; i++ {
		e := EntryView{Key: []byte(fmt.Sprintf("key-%d", i)), Value: []byte("v")}
		require.NoError(t, p.InsertAt(i, e))
	}

	q, err := FromBuf(p.Buf())
	require.NoError(t, err)
	assert.Equal(t, PageID(9), q.ID())
	assert.Equal(t, uint64(77), q.TxID())
	assert.Equal(t, 5, q.NumEntries())
	for i := 0; i < 5; i++ {
		e, err := q.Entry(i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("key-%d", i), string(e.Key))
	}

	_, err = FromBuf(make([]byte, 100))
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestPageCloneIsIndependent(t *testing.T) {
	p := NewPage(2, LeafPageFlag)
	require.NoError(t, p.InsertAt(0, EntryView{Key: []byte("a"), Value: []byte("1")}))

	c := p.Clone(50)
	assert.Equal(t, PageID(50), c.ID())
	assert.Equal(t, PageID(2), p.ID())

	require.NoError(t, c.InsertAt(1, EntryView{Key: []byte("b"), Value: []byte("2")}))
	assert.Equal(t, 1, p.NumEntries())
	assert.Equal(t, 2, c.NumEntries())
}

package voron

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorEmptyTree(t *testing.T) {
	t.Parallel()
	db, _ := setup(t)

	require.NoError(t, db.View(func(tx *Tx) error {
		c := tx.Cursor()
		assert.False(t, c.First())
		assert.False(t, c.Valid())
		assert.False(t, c.Next())
		assert.Nil(t, c.Key())
		assert.NoError(t, c.Err())
		return nil
	}))
}

func TestCursorFullScan(t *testing.T) {
	t.Parallel()
	db, _ := setup(t, WithSyncOff())

	const n = 4000
	require.NoError(t, db.Update(func(tx *Tx) error {
		for i := n - 1; i >= 0; i-- {
			if err := tx.Set([]byte(fmt.Sprintf("key-%06d", i)), []byte(fmt.Sprintf("val-%06d", i))); err != nil {
				return err
			}
		}
		return nil
	}))

	var keys []string
	require.NoError(t, db.View(func(tx *Tx) error {
		c := tx.Cursor()
		for ok := c.First(); ok; ok = c.Next() {
			keys = append(keys, string(c.Key()))
			assert.Equal(t, "val-"+string(c.Key())[4:], string(c.Value()))
		}
		return c.Err()
	}))

	require.Len(t, keys, n)
	assert.True(t, sort.StringsAreSorted(keys), "cursor must yield keys in order")
}

func TestCursorSeek(t *testing.T) {
	t.Parallel()
	db, _ := setup(t)

	for _, i := range []int{10, 20, 30, 40} {
		require.NoError(t, db.Set([]byte(fmt.Sprintf("key-%03d", i)), []byte("v")))
	}

	require.NoError(t, db.View(func(tx *Tx) error {
		c := tx.Cursor()

		// Exact hit
		require.True(t, c.Seek([]byte("key-020")))
		assert.Equal(t, "key-020", string(c.Key()))

		// Between keys lands on the successor
		require.True(t, c.Seek([]byte("key-025")))
		assert.Equal(t, "key-030", string(c.Key()))

		// Before the first key
		require.True(t, c.Seek([]byte("a")))
		assert.Equal(t, "key-010", string(c.Key()))

		// Past the last key
		assert.False(t, c.Seek([]byte("zzz")))
		assert.False(t, c.Valid())
		return c.Err()
	}))
}

func TestCursorSeekAcrossLeaves(t *testing.T) {
	t.Parallel()
	db, _ := setup(t, WithSyncOff())

	const n = 2000
	require.NoError(t, db.Update(func(tx *Tx) error {
		// Even keys only, so every seek to an odd key crosses to the
		// next entry, sometimes in the next leaf
		for i := 0; i < n; i += 2 {
			if err := tx.Set([]byte(fmt.Sprintf("key-%06d", i)), []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, db.View(func(tx *Tx) error {
		c := tx.Cursor()
		for i := 1; i < n-1; i += 198 {
			require.True(t, c.Seek([]byte(fmt.Sprintf("key-%06d", i))), "seek key-%06d", i)
			want := fmt.Sprintf("key-%06d", i+1)
			assert.Equal(t, want, string(c.Key()))
		}
		return c.Err()
	}))
}

func TestCursorSeesOverflowValues(t *testing.T) {
	t.Parallel()
	db, _ := setup(t)

	big := make([]byte, 20000)
	for i := range big {
		big[i] = byte(i)
	}
	require.NoError(t, db.Set([]byte("big"), big))
	require.NoError(t, db.Set([]byte("small"), []byte("v")))

	require.NoError(t, db.View(func(tx *Tx) error {
		c := tx.Cursor()
		require.True(t, c.First())
		assert.Equal(t, "big", string(c.Key()))
		assert.Equal(t, big, c.Value())

		require.True(t, c.Next())
		assert.Equal(t, "small", string(c.Key()))
		assert.Equal(t, []byte("v"), c.Value())

		assert.False(t, c.Next())
		return c.Err()
	}))
}

func TestCursorWithinWriteTx(t *testing.T) {
	t.Parallel()
	db, _ := setup(t)

	require.NoError(t, db.Update(func(tx *Tx) error {
		for i := 0; i < 100; i++ {
			if err := tx.Set([]byte(fmt.Sprintf("key-%03d", i)), []byte("v")); err != nil {
				return err
			}
		}

		// Uncommitted writes are visible to the transaction's own cursor
		c := tx.Cursor()
		count := 0
		for ok := c.First(); ok; ok = c.Next() {
			count++
		}
		assert.Equal(t, 100, count)
		return c.Err()
	}))
}

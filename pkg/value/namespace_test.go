package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSetGetRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Set(5, 100)
	got, ok := tbl.Get(5)
	require.True(t, ok)
	assert.Equal(t, ID(100), got)
}

func TestTableGetMissingKey(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Get(5)
	assert.False(t, ok)
}

func TestTableSetZeroDeletes(t *testing.T) {
	tbl := NewTable()
	tbl.Set(5, 100)
	tbl.Set(5, NoneID)
	_, ok := tbl.Get(5)
	assert.False(t, ok)
}

func TestTableDeletedSlotIsReusable(t *testing.T) {
	tbl := NewTable()
	tbl.Set(5, 100)
	tbl.Set(5, NoneID)
	tbl.Set(5, 200)
	got, ok := tbl.Get(5)
	require.True(t, ok)
	assert.Equal(t, ID(200), got)
}

func TestTableGrowsWhenHalfFull(t *testing.T) {
	tbl := NewTable()
	initial := tbl.Size()
	// Growth is checked before each insert, so the insert that finds the
	// table already half full is the one that grows it.
	for i := uint32(1); i <= uint32(initial/2)+1; i++ {
		tbl.Set(i, ID(i))
	}
	assert.Greater(t, tbl.Size(), initial)
	assert.True(t, isPowerOfTwo(tbl.Size()))
}

func TestTableSizeAlwaysPowerOfTwo(t *testing.T) {
	tbl := NewTable()
	for i := uint32(1); i <= 200; i++ {
		tbl.Set(i, ID(i))
		assert.True(t, isPowerOfTwo(tbl.Size()))
	}
}

func TestTableLoadFactorNeverExceedsHalf(t *testing.T) {
	tbl := NewTable()
	for i := uint32(1); i <= 200; i++ {
		tbl.Set(i, ID(i))
		assert.LessOrEqual(t, tbl.Len(), tbl.Size()/2)
	}
}

func TestTableKeyOrderDoesNotAffectLookup(t *testing.T) {
	a := NewTable()
	a.Set(1, 10)
	a.Set(2, 20)

	b := NewTable()
	b.Set(2, 20)
	b.Set(1, 10)

	v1, _ := a.Get(1)
	v2, _ := b.Get(1)
	assert.Equal(t, v1, v2)
	v1, _ = a.Get(2)
	v2, _ = b.Get(2)
	assert.Equal(t, v1, v2)
}

func TestTableReplaceExistingKey(t *testing.T) {
	tbl := NewTable()
	tbl.Set(3, 1)
	tbl.Set(3, 2)
	got, ok := tbl.Get(3)
	require.True(t, ok)
	assert.Equal(t, ID(2), got)
	assert.Equal(t, 1, tbl.Len())
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

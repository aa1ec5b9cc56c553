package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArraySmallIsSBO(t *testing.T) {
	v := NewArray([]ID{1, 2})
	assert.True(t, v.IsSBO())
	assert.Equal(t, 2, v.ArrayLen())
}

func TestNewArrayLargeIsHeap(t *testing.T) {
	v := NewArray([]ID{1, 2, 3})
	assert.False(t, v.IsSBO())
	assert.Equal(t, 3, v.ArrayLen())
}

func TestArrayGetSetRoundTrips(t *testing.T) {
	for _, ids := range [][]ID{{10, 20}, {10, 20, 30}} {
		v := NewArray(ids)
		got, err := v.ArrayGet(1)
		require.NoError(t, err)
		assert.Equal(t, ids[1], got)

		require.NoError(t, v.ArraySet(0, 99))
		got, err = v.ArrayGet(0)
		require.NoError(t, err)
		assert.Equal(t, ID(99), got)
	}
}

func TestArrayGetOutOfRange(t *testing.T) {
	v := NewArray([]ID{1, 2})
	_, err := v.ArrayGet(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = v.ArrayGet(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestArraySetOutOfRange(t *testing.T) {
	v := NewArray([]ID{1, 2})
	assert.ErrorIs(t, v.ArraySet(5, 1), ErrOutOfRange)
}

func TestArraySBOAndHeapBehaveIdentically(t *testing.T) {
	small := NewArray([]ID{7, 8})
	large := NewArray([]ID{7, 8, 0})
	got1, _ := small.ArrayGet(0)
	got2, _ := large.ArrayGet(0)
	assert.Equal(t, got1, got2)
}

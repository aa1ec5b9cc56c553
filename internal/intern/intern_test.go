package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutIsIdempotent(t *testing.T) {
	tbl := New()
	a := tbl.Put("foo")
	b := tbl.Put("foo")
	assert.Equal(t, a, b)
	assert.NotZero(t, a)
}

func TestPutIsABijection(t *testing.T) {
	tbl := New()
	foo := tbl.Put("foo")
	bar := tbl.Put("bar")
	assert.NotEqual(t, foo, bar)

	assert.Equal(t, "foo", tbl.String(foo))
	assert.Equal(t, "bar", tbl.String(bar))
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	tbl := New()
	_, ok := tbl.Lookup("nope")
	assert.False(t, ok)
}

func TestStringOfUnknownIDPanics(t *testing.T) {
	tbl := New()
	require.Panics(t, func() { tbl.String(1) })
	require.Panics(t, func() { tbl.String(0) })
}

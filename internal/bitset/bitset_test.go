package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocateFillsLowestFirst(t *testing.T) {
	var s Set
	for i := uint64(0); i < 130; i++ {
		id := s.AllocateNext()
		assert.Equal(t, i, id)
		assert.True(t, s.Get(id))
	}
}

func TestUnsetAllowsReuse(t *testing.T) {
	var s Set
	ids := make([]uint64, 8)
	for i := range ids {
		ids[i] = s.AllocateNext()
	}

	s.Unset(ids[3])
	assert.False(t, s.Get(ids[3]))

	reused := s.AllocateNext()
	assert.Equal(t, ids[3], reused)
}

func TestUnsetUnknownIsNoop(t *testing.T) {
	var s Set
	s.Unset(9999)
	assert.False(t, s.Get(9999))
}

func TestIterateOrdersAscending(t *testing.T) {
	var s Set
	want := []uint64{0, 1, 64, 65, 200}
	for _, id := range want {
		for s.AllocateNext() != id {
		}
	}
	keep := map[uint64]bool{}
	for _, id := range want {
		keep[id] = true
	}
	for id := uint64(0); id <= 200; id++ {
		if !keep[id] {
			s.Unset(id)
		}
	}

	var got []uint64
	it := s.Iterate()
	for {
		id, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, want, got)
}

func TestIterateFromSkipsLowerMembers(t *testing.T) {
	var s Set
	for i := uint64(0); i < 70; i++ {
		s.AllocateNext()
	}

	it := s.IterateFrom(65)
	first, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, uint64(65), first)
}

func TestIterateEmptySetYieldsNothing(t *testing.T) {
	var s Set
	_, ok := s.Iterate().Next()
	assert.False(t, ok)
}

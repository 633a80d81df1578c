package intersect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntersect_CommonGames(t *testing.T) {
	sets := []Set{
		NewSet(1, 2, 3),
		NewSet(2, 3, 4),
		NewSet(2, 3, 5),
	}

	got := Intersect(sets)
	assert.Equal(t, NewSet(2, 3), got)
}

func TestIntersect_OrderIndependent(t *testing.T) {
	a := NewSet(1, 2, 3, 4)
	b := NewSet(2, 4, 6)
	c := NewSet(4, 2)

	forward := Intersect([]Set{a, b, c})
	backward := Intersect([]Set{c, b, a})

	assert.Equal(t, forward, backward)
	assert.Equal(t, NewSet(2, 4), forward)
}

func TestIntersect_NoInput(t *testing.T) {
	assert.Empty(t, Intersect(nil))
}

func TestIntersect_DisjointSets(t *testing.T) {
	got := Intersect([]Set{NewSet(1, 2), NewSet(3, 4), NewSet(1, 3)})
	assert.Empty(t, got)
}

func TestAccumulator_EarlyExit(t *testing.T) {
	var acc Accumulator

	assert.False(t, acc.Add(NewSet(1, 2)))
	assert.True(t, acc.Add(NewSet(3, 4)), "disjoint set should empty the accumulator")

	// Once empty, further sets cannot revive the intersection.
	assert.True(t, acc.Add(NewSet(1, 2, 3, 4)))
	assert.Empty(t, acc.Result())
}

func TestAccumulator_EmptyFirstSet(t *testing.T) {
	var acc Accumulator
	assert.True(t, acc.Add(Set{}))
}

func TestAccumulator_DoesNotMutateInput(t *testing.T) {
	first := NewSet(1, 2, 3)

	var acc Accumulator
	acc.Add(first)
	acc.Add(NewSet(1))

	assert.Len(t, first, 3)
	assert.Equal(t, NewSet(1), acc.Result())
}

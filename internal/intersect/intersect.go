// Package intersect computes the running intersection of owned-game sets.
package intersect

// Set is a set of Steam app IDs.
type Set map[uint64]struct{}

// NewSet builds a Set from a list of IDs.
func NewSet(ids ...uint64) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Accumulator holds a running intersection. The zero value is ready to use;
// the first Add seeds the accumulator, each further Add intersects into it.
// Add reports whether the running intersection is empty so the caller can
// stop fetching remaining libraries as soon as the result is provably empty.
type Accumulator struct {
	current Set
	seeded  bool
}

// Add folds the next set into the running intersection and reports whether
// the intersection is now empty.
func (a *Accumulator) Add(s Set) bool {
	if !a.seeded {
		a.current = make(Set, len(s))
		for id := range s {
			a.current[id] = struct{}{}
		}
		a.seeded = true
		return len(a.current) == 0
	}

	for id := range a.current {
		if _, ok := s[id]; !ok {
			delete(a.current, id)
		}
	}
	return len(a.current) == 0
}

// Result returns the accumulated intersection. Nil before the first Add.
func (a *Accumulator) Result() Set {
	return a.current
}

// Intersect computes the intersection of all given sets, stopping early once
// a prefix's running intersection is empty. No iteration order is guaranteed
// on the result.
func Intersect(sets []Set) Set {
	var acc Accumulator
	for _, s := range sets {
		if acc.Add(s) {
			return Set{}
		}
	}
	if acc.Result() == nil {
		return Set{}
	}
	return acc.Result()
}

package era

import "github.com/halvard/eralearn/internal/util"

// pair is an unordered pair of state indices, normalised with the smaller
// index first so it can be used as a map key.
type pair struct{ a, b int }

func mkPair(x, y int) pair {
	if x > y {
		x, y = y, x
	}
	return pair{x, y}
}

// Incompatible computes the fixed point of the incompatibility relation over
// a's live states: two states are incompatible if one is
// accepting and the other is non-accepting-and-not-don't-care, or if on some
// common (event, guard) they step to a pair that is itself incompatible.
func (e *ERA) Incompatible() map[pair]bool {
	live := e.LiveStates()
	inc := map[pair]bool{}

	for _, x := range live {
		for _, y := range live {
			if x >= y {
				continue
			}
			sx, sy := e.states[x], e.states[y]
			if sx.Accepting != sy.Accepting && !sx.DontCare && !sy.DontCare {
				inc[mkPair(x, y)] = true
			}
		}
	}

	for {
		changed := false
		for _, x := range live {
			for _, y := range live {
				if x >= y {
					continue
				}
				p := mkPair(x, y)
				if inc[p] {
					continue
				}
				if e.stepsToIncompatible(x, y, inc) {
					inc[p] = true
					changed = true
				}
			}
		}
		if !changed {
			return inc
		}
	}
}

func (e *ERA) stepsToIncompatible(x, y int, inc map[pair]bool) bool {
	for _, tx := range e.bySrc[x] {
		for _, ty := range e.bySrc[y] {
			if tx.Event.Name != ty.Event.Name || !tx.Guard.Equal(ty.Guard) {
				continue
			}
			if tx.Tgt == ty.Tgt {
				continue
			}
			if inc[mkPair(tx.Tgt, ty.Tgt)] {
				return true
			}
		}
	}
	return false
}

// MaximalCompatibleSets computes the maximal compatibility classes of a's
// live states: starting from the full live state set, whenever
// an incompatible pair {x,y} is contained in a current candidate M, split M
// into M\{x} and M\{y}, and drop any candidate that is a subset of another.
// The fixed point is the set of maximal compatibility classes.
func (e *ERA) MaximalCompatibleSets() []util.IntSet {
	inc := e.Incompatible()
	candidates := []util.IntSet{util.NewIntSet(e.LiveStates()...)}

	for {
		var p pair
		var found bool
	search:
		for _, m := range candidates {
			elems := m.Elements()
			for i := 0; i < len(elems); i++ {
				for j := i + 1; j < len(elems); j++ {
					if inc[mkPair(elems[i], elems[j])] {
						p = pair{elems[i], elems[j]}
						found = true
						break search
					}
				}
			}
		}
		if !found {
			return dropSubsets(candidates)
		}

		var next []util.IntSet
		for _, m := range candidates {
			if m.Has(p.a) && m.Has(p.b) {
				withoutA := m.Copy()
				withoutA.Remove(p.a)
				withoutB := m.Copy()
				withoutB.Remove(p.b)
				next = append(next, withoutA, withoutB)
			} else {
				next = append(next, m)
			}
		}
		candidates = dropSubsets(next)
	}
}

func dropSubsets(sets []util.IntSet) []util.IntSet {
	var out []util.IntSet
	for i, m := range sets {
		subsumed := false
		for j, o := range sets {
			if i == j {
				continue
			}
			if m.IsSubsetOf(o) && (!o.IsSubsetOf(m) || i > j) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, m)
		}
	}
	return out
}

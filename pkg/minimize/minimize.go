// Package minimize builds the minimal deterministic ERA consistent with a
// 3ERA's observations, by forward construction over its maximal
// compatibility classes.
package minimize

import (
	"sort"
	"strconv"

	"github.com/halvard/eralearn/internal/util"
	"github.com/halvard/eralearn/pkg/era"
)

// Minimize computes the minimal DERA for the 3ERA a:
//  1. compute a's maximal compatibility classes;
//  2. pick, as the initial class, a maximal class containing state 0, ties
//     broken by largest cardinality then a stable order;
//  3. forward-explore: for each class and each (event, guard) key appearing
//     in a, union the targets reachable from the class's members, route to a
//     maximal class containing that union, creating a new output state the
//     first time a class is reached;
//  4. a class is accepting iff any of its members is accepting in a;
//  5. sink-remove the result.
func Minimize(a *era.ERA) *era.ERA {
	classes := a.MaximalCompatibleSets()
	if len(classes) == 0 {
		return era.New(a.Alphabet)
	}

	initClass := pickInitialClass(classes)

	out := era.New(a.Alphabet)
	out.IsDeterministic = true

	classKey := func(m util.IntSet) string { return m.String() }
	stateOf := map[string]int{}
	queue := []util.IntSet{initClass}
	stateOf[classKey(initClass)] = out.AddState("m0", classAccepting(a, initClass))
	out.SetInit(stateOf[classKey(initClass)])

	keys := a.EventGuardKeys()

	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		src := stateOf[classKey(m)]

		for _, k := range keys {
			union := util.NewIntSet()
			seen := false
			for _, s := range m.Elements() {
				if tgt, ok := a.TargetOn(s, k.Event, k.Guard); ok {
					union.Add(tgt)
					seen = true
				}
			}
			if !seen {
				continue
			}

			target := containingClass(classes, union)
			if target == nil {
				continue
			}
			tk := classKey(target)
			tgtIdx, ok := stateOf[tk]
			if !ok {
				tgtIdx = out.AddState(classLabel(len(stateOf)), classAccepting(a, target))
				stateOf[tk] = tgtIdx
				queue = append(queue, target)
			}
			out.AddTransition(src, tgtIdx, k.Event, k.Guard)
		}
	}

	out.RemoveSinks()
	return out
}

func classLabel(n int) string {
	return "m" + strconv.Itoa(n)
}

func classAccepting(a *era.ERA, m util.IntSet) bool {
	for _, s := range m.Elements() {
		if a.IsAccepting(s) {
			return true
		}
	}
	return false
}

// pickInitialClass chooses a maximal class containing state 0, preferring
// larger cardinality, then the first encountered.
func pickInitialClass(classes []util.IntSet) util.IntSet {
	var candidates []util.IntSet
	for _, m := range classes {
		if m.Has(0) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return classes[0]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Len() > candidates[j].Len()
	})
	return candidates[0]
}

// containingClass finds a maximal class containing every element of union,
// preferring the largest such class when several qualify.
func containingClass(classes []util.IntSet, union util.IntSet) util.IntSet {
	var best util.IntSet
	for _, m := range classes {
		if union.IsSubsetOf(m) {
			if best == nil || m.Len() > best.Len() {
				best = m
			}
		}
	}
	return best
}

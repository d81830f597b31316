// Package region enumerates the symbolic input alphabet's region set: for a
// bound m and a set of active clocks, every convex
// intersection of elementary per-clock intervals up to m.
package region

import (
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
)

// clockIntervals returns, in order, the 2m+2 elementary intervals
// {x=0, 0<x<1, x=1, ..., x=m, x>m} for ev's clock.
func clockIntervals(ev event.Event, m int) [][]guard.Simple {
	out := make([][]guard.Simple, 0, 2*m+2)
	out = append(out, []guard.Simple{{Event: ev, Cmp: guard.Eq, Bound: 0}})
	for k := 1; k <= m; k++ {
		out = append(out, []guard.Simple{
			{Event: ev, Cmp: guard.Gt, Bound: k - 1},
			{Event: ev, Cmp: guard.Lt, Bound: k},
		})
		out = append(out, []guard.Simple{{Event: ev, Cmp: guard.Eq, Bound: k}})
	}
	out = append(out, []guard.Simple{{Event: ev, Cmp: guard.Gt, Bound: m}})
	return out
}

// Enumerate returns every region over the given active events at bound m, as
// the cartesian product (in declaration order) of each clock's elementary
// intervals. With zero active clocks the product is the single vacuous
// region True. Cardinality is (2m+2)^len(activeEvents).
func Enumerate(m int, activeEvents []event.Event) []guard.Guard {
	if len(activeEvents) == 0 {
		return []guard.Guard{guard.True()}
	}

	perClock := make([][][]guard.Simple, len(activeEvents))
	for i, ev := range activeEvents {
		perClock[i] = clockIntervals(ev, m)
	}

	var results []guard.Guard
	acc := make([]guard.Simple, 0, len(activeEvents)*2)

	var rec func(idx int)
	rec = func(idx int) {
		if idx == len(perClock) {
			results = append(results, guard.NewConj(append([]guard.Simple(nil), acc...)))
			return
		}
		for _, opt := range perClock[idx] {
			acc = append(acc, opt...)
			rec(idx + 1)
			acc = acc[:len(acc)-len(opt)]
		}
	}
	rec(0)
	return results
}

// Count returns (2m+2)^k without materialising the region list.
func Count(m, activeClocks int) int {
	n := 2*m + 2
	total := 1
	for i := 0; i < activeClocks; i++ {
		total *= n
	}
	return total
}

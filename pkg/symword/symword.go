// Package symword implements symbolic events and symbolic words,
// including the emptiness check shared by the observation table and by
// symbolic acceptance.
package symword

import (
	"fmt"
	"strings"

	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/smt"
)

// SymEvent pairs an event with a guard on its clock.
type SymEvent struct {
	Event event.Event
	Guard guard.Guard
}

// Eps is the reserved ε symbolic event.
var Eps = SymEvent{Event: event.Epsilon, Guard: guard.True()}

// IsEpsilon reports whether se is the reserved ε token.
func (se SymEvent) IsEpsilon() bool {
	return se.Event.IsEpsilon()
}

func (se SymEvent) String() string {
	if se.IsEpsilon() {
		return "EPSILON"
	}
	return fmt.Sprintf("(%s,%s)", se.Event.Name, se.Guard)
}

// Equal compares two SymEvents by event name and guard equality.
func (se SymEvent) Equal(o SymEvent) bool {
	if se.IsEpsilon() || o.IsEpsilon() {
		return se.IsEpsilon() && o.IsEpsilon()
	}
	return se.Event.Name == o.Event.Name && se.Guard.Equal(o.Guard)
}

// SymWord is a finite sequence of SymEvents. An ε-word is represented as a
// single-element sequence holding only Eps.
type SymWord struct {
	syms []SymEvent
}

// Epsilon returns the length-zero word.
func Epsilon() SymWord {
	return SymWord{syms: []SymEvent{Eps}}
}

// New builds a SymWord from the given non-ε symbols. Passing no symbols
// yields Epsilon().
func New(syms ...SymEvent) SymWord {
	if len(syms) == 0 {
		return Epsilon()
	}
	return SymWord{syms: append([]SymEvent(nil), syms...)}
}

// IsEpsilon reports whether w is the ε-word.
func (w SymWord) IsEpsilon() bool {
	return len(w.syms) == 1 && w.syms[0].IsEpsilon()
}

// Len returns the number of symbols in w, 0 for the ε-word.
func (w SymWord) Len() int {
	if w.IsEpsilon() {
		return 0
	}
	return len(w.syms)
}

// At returns the symbol at position i (0-indexed).
func (w SymWord) At(i int) SymEvent {
	return w.syms[i]
}

// Syms returns w's symbols in order, empty for the ε-word.
func (w SymWord) Syms() []SymEvent {
	if w.IsEpsilon() {
		return nil
	}
	return append([]SymEvent(nil), w.syms...)
}

// Concat concatenates a and b, treating ε as the identity.
func Concat(a, b SymWord) SymWord {
	var out []SymEvent
	if !a.IsEpsilon() {
		out = append(out, a.syms...)
	}
	if !b.IsEpsilon() {
		out = append(out, b.syms...)
	}
	if len(out) == 0 {
		return Epsilon()
	}
	return SymWord{syms: out}
}

// Equal compares two SymWords pointwise.
func (w SymWord) Equal(o SymWord) bool {
	if w.IsEpsilon() || o.IsEpsilon() {
		return w.IsEpsilon() && o.IsEpsilon()
	}
	if len(w.syms) != len(o.syms) {
		return false
	}
	for i := range w.syms {
		if !w.syms[i].Equal(o.syms[i]) {
			return false
		}
	}
	return true
}

// String renders w as a dot-joined sequence of symbol printable forms, or
// "EPSILON" for the ε-word. This is used verbatim as the observation table's
// row/column key, so it must be stable and collision-free across distinct
// words.
func (w SymWord) String() string {
	if w.IsEpsilon() {
		return "EPSILON"
	}
	parts := make([]string, len(w.syms))
	for i, s := range w.syms {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// LastOccurrenceOf returns the greatest index j < pos whose event is ev, or
// -1 if there is none. A guard conjunct on ev's clock at position pos reads
// the time elapsed since that index (or since 0 when ev has not occurred
// yet). Exported for symbolic acceptance (pkg/era/accept), which needs the
// same last-occurrence semantics when combining a word's guard constraints
// with a candidate path's transition guards.
func (w SymWord) LastOccurrenceOf(ev event.Event, pos int) int {
	for j := pos - 1; j >= 0; j-- {
		if w.syms[j].Event.Name == ev.Name {
			return j
		}
	}
	return -1
}

// TimeVar names the timestamp variable for position i, by the convention
// shared between emptiness checking here and symbolic acceptance (pkg/era's
// accept subpackage), so the two encodings can be embedded in one formula.
func TimeVar(i int) string {
	return fmt.Sprintf("t%d", i)
}

// GuardConstraints builds the difference constraints asserting monotone
// non-decreasing timestamps plus, for every position, that its guard holds.
// Each conjunct constrains its own event's clock: the time elapsed since
// that event's last occurrence before the position, or since zero if it has
// not occurred. timeVar names each position's timestamp
// variable; pass TimeVar to use the default convention, or a renaming
// function when embedding into a larger shared formula.
func (w SymWord) GuardConstraints(timeVar func(int) string) []smt.Constraint {
	if w.IsEpsilon() {
		return nil
	}
	var cs []smt.Constraint
	n := len(w.syms)
	for i := 1; i < n; i++ {
		cs = append(cs, smt.Constraint{X: timeVar(i), Ref: timeVar(i - 1), Op: smt.Ge, Bound: 0})
	}
	for i := 0; i < n; i++ {
		cs = append(cs, w.GuardConstraintsAt(i, w.syms[i].Guard, timeVar)...)
	}
	return cs
}

// GuardConstraintsAt builds the difference constraints for g holding at
// position pos of w, resolving each conjunct's clock against that event's
// last occurrence before pos. The guard need not be the one stored at pos:
// symbolic acceptance uses this to overlay a transition's guard onto the
// word's positions.
func (w SymWord) GuardConstraintsAt(pos int, g guard.Guard, timeVar func(int) string) []smt.Constraint {
	var cs []smt.Constraint
	for _, s := range g.Conjuncts() {
		c := s.Constraint()
		c.X = timeVar(pos)
		if last := w.LastOccurrenceOf(s.Event, pos); last >= 0 {
			c.Ref = timeVar(last)
		}
		cs = append(cs, c)
	}
	return cs
}

// IsEmpty reports whether w has no concretisation: no assignment of
// non-decreasing, non-negative timestamps to its positions satisfies every
// position's guard. The ε-word is never empty.
func (w SymWord) IsEmpty() bool {
	if w.IsEpsilon() {
		return false
	}
	return !smt.Feasible(w.GuardConstraints(TimeVar))
}

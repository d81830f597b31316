// Package guard implements the constraint algebra over per-event clocks: the
// atomic/conjunctive guard expressions an ERA's transitions and a learner's
// regions are built from.
package guard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/smt"
)

// Cmp is one of the five comparators a Simple constraint may use.
type Cmp int

const (
	Lt Cmp = iota
	Le
	Eq
	Ge
	Gt
)

func (c Cmp) String() string {
	switch c {
	case Lt:
		return "<"
	case Le:
		return "<="
	case Eq:
		return "=="
	case Ge:
		return ">="
	case Gt:
		return ">"
	default:
		return "?"
	}
}

// SMTOp converts a Cmp to the smt package's equivalent comparator.
func (c Cmp) SMTOp() smt.Op {
	switch c {
	case Lt:
		return smt.Lt
	case Le:
		return smt.Le
	case Eq:
		return smt.Eq
	case Ge:
		return smt.Ge
	case Gt:
		return smt.Gt
	default:
		panic(fmt.Sprintf("guard: unknown Cmp %d", c))
	}
}

// reverse gives the comparator obtained by swapping the operands of a
// comparison, e.g. "k >= x" becomes "x <= k".
func (c Cmp) reverse() Cmp {
	switch c {
	case Ge:
		return Le
	case Gt:
		return Lt
	case Le:
		return Ge
	case Lt:
		return Gt
	case Eq:
		return Eq
	default:
		panic(fmt.Sprintf("guard: unknown Cmp %d", c))
	}
}

// Simple is an atomic constraint on a single active event's clock.
type Simple struct {
	Event event.Event
	Cmp   Cmp
	Bound int
}

func (s Simple) String() string {
	return fmt.Sprintf("%s%s%d", s.Event.Name, s.Cmp, s.Bound)
}

// Equal compares two Simples by event name, comparator, and bound.
func (s Simple) Equal(o Simple) bool {
	return s.Event.Name == o.Event.Name && s.Cmp == o.Cmp && s.Bound == o.Bound
}

// Constraint converts s into the smt package's difference-constraint form,
// bounding the event's clock directly against zero.
func (s Simple) Constraint() smt.Constraint {
	return smt.Constraint{X: s.Event.Clock(), Op: s.Cmp.SMTOp(), Bound: s.Bound}
}

type kind int

const (
	kindTrue kind = iota
	kindSimple
	kindConj
)

// Guard is the vacuous True guard, an atomic Simple, or the non-empty
// conjunction of two or more Simples. The zero value is True.
type Guard struct {
	kind   kind
	simple Simple
	conj   []Simple
}

// True returns the vacuous guard.
func True() Guard {
	return Guard{kind: kindTrue}
}

// NewSimple builds an atomic guard.
func NewSimple(e event.Event, cmp Cmp, bound int) Guard {
	return Guard{kind: kindSimple, simple: Simple{Event: e, Cmp: cmp, Bound: bound}}
}

// NewConj builds the canonicalised conjunction of the given Simples. A
// conjunction that canonicalises to zero constraints is True; one that
// canonicalises to exactly one constraint is the equivalent Simple guard, so
// a one-conjunct conjunction and the atomic constraint compare equal.
func NewConj(simples []Simple) Guard {
	canon := canonicalize(simples)
	switch len(canon) {
	case 0:
		return True()
	case 1:
		return Guard{kind: kindSimple, simple: canon[0]}
	default:
		return Guard{kind: kindConj, conj: canon}
	}
}

// canonicalize removes duplicate Simples and fuses a >=k/<=k pair on the
// same event into a single ==k, to a fixed point.
func canonicalize(in []Simple) []Simple {
	list := append([]Simple(nil), in...)

	for {
		changed := false

		// remove duplicates
		for i := 0; i < len(list) && !changed; i++ {
			for j := i + 1; j < len(list); j++ {
				if list[i].Equal(list[j]) {
					list = append(list[:j], list[j+1:]...)
					changed = true
					break
				}
			}
		}
		if changed {
			continue
		}

		// fuse ge/le pairs on the same event and bound into eq
		for i := 0; i < len(list) && !changed; i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if a.Event.Name != b.Event.Name || a.Bound != b.Bound {
					continue
				}
				if (a.Cmp == Ge && b.Cmp == Le) || (a.Cmp == Le && b.Cmp == Ge) {
					list[i] = Simple{Event: a.Event, Cmp: Eq, Bound: a.Bound}
					list = append(list[:j], list[j+1:]...)
					changed = true
					break
				}
			}
		}
		if !changed {
			break
		}
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Event.Name != list[j].Event.Name {
			return list[i].Event.Name < list[j].Event.Name
		}
		if list[i].Cmp != list[j].Cmp {
			return list[i].Cmp < list[j].Cmp
		}
		return list[i].Bound < list[j].Bound
	})
	return list
}

// IsTrue, IsSimple, and IsConj report the guard's variant.
func (g Guard) IsTrue() bool   { return g.kind == kindTrue }
func (g Guard) IsSimple() bool { return g.kind == kindSimple }
func (g Guard) IsConj() bool   { return g.kind == kindConj }

// Conjuncts returns the guard's constituent Simples: none for True, the one
// Simple for a Simple guard, or the canonicalised list for a Conj.
func (g Guard) Conjuncts() []Simple {
	switch g.kind {
	case kindTrue:
		return nil
	case kindSimple:
		return []Simple{g.simple}
	default:
		return append([]Simple(nil), g.conj...)
	}
}

// EventOf, Bound, and Op are defined only for a Simple guard; calling them on
// True or Conj is a contract violation.
func (g Guard) EventOf() event.Event {
	if g.kind != kindSimple {
		panic(eraerr.Contract("guard: EventOf() undefined for %s", g))
	}
	return g.simple.Event
}

func (g Guard) Bound() int {
	if g.kind != kindSimple {
		panic(eraerr.Contract("guard: Bound() undefined for %s", g))
	}
	return g.simple.Bound
}

func (g Guard) Op() Cmp {
	if g.kind != kindSimple {
		panic(eraerr.Contract("guard: Op() undefined for %s", g))
	}
	return g.simple.Cmp
}

// Bounds returns the tightest lower and upper bound implied for e's clock by
// g's conjuncts, or nil where no such bound is implied.
func (g Guard) Bounds(e event.Event) (lo, hi *int) {
	for _, s := range g.Conjuncts() {
		if s.Event.Name != e.Name {
			continue
		}
		v := s.Bound
		if (s.Cmp == Eq || s.Cmp == Ge || s.Cmp == Gt) && (lo == nil || v > *lo) {
			lo = &v
		}
		if (s.Cmp == Eq || s.Cmp == Le || s.Cmp == Lt) && (hi == nil || v < *hi) {
			hi = &v
		}
	}
	return lo, hi
}

// Equal reports whether g and o denote the same constraint: both True, or
// their canonicalised multisets of Simples are equal.
func (g Guard) Equal(o Guard) bool {
	if g.IsTrue() || o.IsTrue() {
		return g.IsTrue() && o.IsTrue()
	}
	a, b := g.Conjuncts(), o.Conjuncts()
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, sa := range a {
		found := false
		for j, sb := range b {
			if !used[j] && sa.Equal(sb) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders the guard's printable form.
func (g Guard) String() string {
	switch g.kind {
	case kindTrue:
		return "True"
	case kindSimple:
		return g.simple.String()
	default:
		parts := make([]string, len(g.conj))
		for i, s := range g.conj {
			parts[i] = s.String()
		}
		return strings.Join(parts, "&&")
	}
}

// Parse parses a guard string against alph, validating that every event
// mentioned is a declared, active member of the alphabet.
func Parse(alph *event.Alphabet, s string) (Guard, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "True" {
		return True(), nil
	}
	if strings.Contains(s, "&&") {
		parts := strings.Split(s, "&&")
		simples := make([]Simple, len(parts))
		for i, p := range parts {
			simple, err := parseSimple(alph, p)
			if err != nil {
				return Guard{}, err
			}
			simples[i] = simple
		}
		return NewConj(simples), nil
	}
	simple, err := parseSimple(alph, s)
	if err != nil {
		return Guard{}, err
	}
	return Guard{kind: kindSimple, simple: simple}, nil
}

var cmpTokens = []struct {
	token string
	cmp   Cmp
}{
	{"<=", Le},
	{">=", Ge},
	{"==", Eq},
	{"<", Lt},
	{">", Gt},
}

func parseSimple(alph *event.Alphabet, s string) (Simple, error) {
	var tok string
	var cmp Cmp
	idx := -1
	for _, ct := range cmpTokens {
		if i := strings.Index(s, ct.token); i >= 0 {
			tok, cmp, idx = ct.token, ct.cmp, i
			break
		}
	}
	if idx < 0 {
		return Simple{}, eraerr.InvalidInput("guard: no eligible operator found in %q", s)
	}

	left := s[:idx]
	right := s[idx+len(tok):]

	if ev, bound, ok := eventAndBound(alph, left, right); ok {
		return Simple{Event: ev, Cmp: cmp, Bound: bound}, nil
	}
	if ev, bound, ok := eventAndBound(alph, right, left); ok {
		return Simple{Event: ev, Cmp: cmp.reverse(), Bound: bound}, nil
	}
	return Simple{}, eraerr.InvalidInput("guard: %q is not a valid event-bound pair in %q", left, s)
}

func eventAndBound(alph *event.Alphabet, evStr, boundStr string) (event.Event, int, bool) {
	bound, err := strconv.Atoi(boundStr)
	if err != nil {
		return event.Event{}, 0, false
	}
	ev := event.New(evStr)
	if alph != nil {
		if !alph.Contains(ev) {
			return event.Event{}, 0, false
		}
		if !alph.IsActive(ev) {
			return event.Event{}, 0, false
		}
	}
	return ev, bound, true
}

// Intersects reports whether g1 and g2 have a common satisfying clock
// valuation.
func Intersects(g1, g2 Guard) bool {
	cs := append(toConstraints(g1), toConstraints(g2)...)
	return smt.Feasible(cs)
}

// IsContained reports whether every valuation satisfying g1 also satisfies
// g2, decided as ¬(g1 ⇒ g2) UNSAT, i.e. g1 ∧ ¬g2 UNSAT. Because
// ¬g2 is a disjunction over the negations of g2's conjuncts (each itself a
// single alternative, or two for a negated equality), containment holds iff
// every alternative, conjoined with g1, is infeasible.
func IsContained(g1, g2 Guard) bool {
	base := toConstraints(g1)
	for _, s := range g2.Conjuncts() {
		for _, alt := range smt.Negate(s.Constraint()) {
			probe := append(append([]smt.Constraint(nil), base...), alt)
			if smt.Feasible(probe) {
				return false
			}
		}
	}
	return true
}

func toConstraints(g Guard) []smt.Constraint {
	conj := g.Conjuncts()
	out := make([]smt.Constraint, len(conj))
	for i, s := range conj {
		out[i] = s.Constraint()
	}
	return out
}

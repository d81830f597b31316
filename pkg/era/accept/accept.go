// Package accept implements symbolic acceptance: deciding whether some
// concretisation of a region-word is accepted by an ERA.
//
// A general-purpose solver could decide this with one large formula that
// binary-encodes the automaton's state per position into boolean variables.
// The difference-bound solver in pkg/smt is not a boolean/arithmetic solver
// but a pure feasibility engine over difference constraints, so the
// state-choice part of the formula is enumerated directly instead of
// encoded: Check walks every path through the ERA consistent with w's
// events, and for each candidate path asks pkg/smt whether the accumulated
// timing constraints are jointly feasible. On a deterministic automaton at
// most one live transition intersects any given position's guard, so the
// enumeration explores the same single path a boolean encoding would have
// pinned down, just without naming it in boolean variables.
package accept

import (
	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/smt"
	"github.com/halvard/eralearn/pkg/symword"
)

// Check reports whether some concretisation of w is accepted by a. a need
// not be deterministic for Check itself to terminate, but the guarantee
// that a positive answer covers every concretisation of a region-word only
// holds when a is deterministic.
func Check(a *era.ERA, w symword.SymWord) bool {
	if w.IsEpsilon() {
		return a.IsAccepting(a.InitIndex())
	}

	for _, s := range w.Syms() {
		if len(a.LiveTransitionsOnEvent(s.Event)) == 0 {
			return false
		}
	}

	n := w.Len()
	pathGuards := make([]smt.Constraint, 0, n)

	var walk func(pos, cur int, cs []smt.Constraint) bool
	walk = func(pos, cur int, cs []smt.Constraint) bool {
		if pos == n {
			return a.IsLive(cur) && a.IsAccepting(cur) && smt.Feasible(cs)
		}
		sym := w.At(pos)

		for _, t := range a.OutgoingOnEvent(cur, sym.Event) {
			if !a.IsLive(t.Tgt) {
				continue
			}
			branch := append(append([]smt.Constraint(nil), cs...), w.GuardConstraintsAt(pos, t.Guard, symword.TimeVar)...)
			branch = append(branch, w.GuardConstraintsAt(pos, sym.Guard, symword.TimeVar)...)
			if pos > 0 {
				branch = append(branch, smt.Constraint{X: symword.TimeVar(pos), Ref: symword.TimeVar(pos - 1), Op: smt.Ge, Bound: 0})
			}
			if walk(pos+1, t.Tgt, branch) {
				return true
			}
		}
		return false
	}

	return walk(0, a.InitIndex(), pathGuards)
}

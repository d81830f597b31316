package era

import (
	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/guard"
)

// Product builds the product of a and b over their shared alphabet: state
// (i,j) is initial/accepting iff both i and j are, live iff
// both are live, don't-care iff either is don't-care. Transitions pair up on
// matching events, conjoining guards; if both sides carry the identical
// guard it is reused as-is rather than rebuilt through conjunction.
// Determinism is preserved when both a and b are deterministic.
func Product(a, b *ERA) *ERA {
	p := New(a.Alphabet)
	p.IsDeterministic = a.IsDeterministic && b.IsDeterministic

	pairIndex := make(map[[2]int]int, a.NumStates()*b.NumStates())
	for i := range a.states {
		for j := range b.states {
			sa, sb := a.states[i], b.states[j]
			name := sa.Name + "x" + sb.Name
			idx := p.AddState(name, sa.Accepting && sb.Accepting)
			p.states[idx].Live = sa.Live && sb.Live
			p.states[idx].DontCare = sa.DontCare || sb.DontCare
			pairIndex[[2]int{i, j}] = idx
			if sa.Init && sb.Init {
				p.SetInit(idx)
			}
		}
	}

	for i := range a.states {
		for j := range b.states {
			src := pairIndex[[2]int{i, j}]
			for _, ta := range a.bySrc[i] {
				for _, tb := range b.bySrc[j] {
					if ta.Event.Name != tb.Event.Name {
						continue
					}
					tgt, ok := pairIndex[[2]int{ta.Tgt, tb.Tgt}]
					if !ok {
						continue
					}
					g := ta.Guard
					if !ta.Guard.Equal(tb.Guard) {
						g = guard.NewConj(append(ta.Guard.Conjuncts(), tb.Guard.Conjuncts()...))
					}
					p.AddTransition(src, tgt, ta.Event, g)
				}
			}
		}
	}

	return p
}

// Complement flips every state's Accepting flag. Defined only on
// a deterministic ERA; the caller is expected to have completed it to a sink
// for missing transitions beforehand, or to rely on consumers treating a
// missing transition as rejecting.
func Complement(a *ERA) *ERA {
	if !a.IsDeterministic {
		panic(eraerr.Contract("era: Complement is undefined on a non-deterministic ERA"))
	}
	c := New(a.Alphabet)
	c.IsDeterministic = true
	for _, s := range a.states {
		idx := c.AddState(s.Name, !s.Accepting)
		c.states[idx].Live = s.Live
		c.states[idx].DontCare = s.DontCare
		if s.Init {
			c.SetInit(idx)
		}
	}
	for _, ts := range a.byPair {
		for _, t := range ts {
			c.AddTransition(t.Src, t.Tgt, t.Event, t.Guard)
		}
	}
	return c
}

// WithDontCareAccepting returns a shallow copy of e with every don't-care
// state's Accepting flag forced true, used by the learner driver's
// completeness check to avoid a don't-care row manufacturing a spurious
// counterexample.
func (e *ERA) WithDontCareAccepting() *ERA {
	c := New(e.Alphabet)
	c.IsDeterministic = e.IsDeterministic
	for _, s := range e.states {
		idx := c.AddState(s.Name, s.Accepting || s.DontCare)
		c.states[idx].Live = s.Live
		c.states[idx].DontCare = s.DontCare
		if s.Init {
			c.SetInit(idx)
		}
	}
	for _, ts := range e.byPair {
		for _, t := range ts {
			c.AddTransition(t.Src, t.Tgt, t.Event, t.Guard)
		}
	}
	return c
}

// RemoveSinks clears the Live flag of every sink state (a non-accepting
// state whose only outgoing edges to live states, if any, are self-loops),
// by fixed point: removing a sink can expose another. Transitions are left
// in place; an edge into a removed state is recognised by its target's Live
// flag.
func (e *ERA) RemoveSinks() {
	for {
		changed := false
		for _, s := range e.states {
			if !s.Live || s.Accepting {
				continue
			}
			if e.isSink(s.Index) {
				e.states[s.Index].Live = false
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (e *ERA) isSink(idx int) bool {
	for _, t := range e.bySrc[idx] {
		if !e.states[t.Tgt].Live {
			continue
		}
		if t.Tgt != idx {
			return false
		}
	}
	return true
}

// Package era implements the event-recording automaton data model: states,
// transitions, the deterministic "add with subsumption" discipline, step and
// word reading, products, complement, sink removal, and compatibility
// analysis.
package era

import (
	"fmt"
	"sort"
	"strings"

	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/symword"
)

// State is one node of an ERA, addressed by its Index in the owning ERA's
// arena.
type State struct {
	Name      string
	Index     int
	Init      bool
	Accepting bool
	DontCare  bool
	Live      bool
}

// Transition is one labelled edge of an ERA.
type Transition struct {
	Src, Tgt int
	Event    event.Event
	Guard    guard.Guard
}

func (t Transition) String() string {
	return fmt.Sprintf("%d -(%s,%s)-> %d", t.Src, t.Event.Name, t.Guard, t.Tgt)
}

func egKey(eventName string, g guard.Guard) string {
	return eventName + "\x00" + g.String()
}

// ERA is an indexed arena of states and transitions over a fixed alphabet
// and active-clock set, with reverse indices by event, by source, and by
// (event, guard) key kept consistent on every mutation.
type ERA struct {
	Alphabet *event.Alphabet

	states []State
	init   int

	// IsDeterministic is preserved across edits that are known to maintain
	// it (AddTransition's subsumption discipline, Product of deterministic
	// ERAs) but is not automatically recomputed after arbitrary edits.
	IsDeterministic bool

	byPair    map[[2]int][]*Transition
	bySrc     map[int][]*Transition
	byEvent   map[string][]*Transition
	byEvGuard map[string]map[int]*Transition // key(event,guard) -> src -> transition
}

// New creates an empty ERA over the given alphabet.
func New(alph *event.Alphabet) *ERA {
	return &ERA{
		Alphabet:        alph,
		init:            -1,
		IsDeterministic: true,
		byPair:          map[[2]int][]*Transition{},
		bySrc:           map[int][]*Transition{},
		byEvent:         map[string][]*Transition{},
		byEvGuard:       map[string]map[int]*Transition{},
	}
}

// AddState returns a fresh state index.
func (e *ERA) AddState(name string, accepting bool) int {
	idx := len(e.states)
	e.states = append(e.states, State{Name: name, Index: idx, Accepting: accepting, Live: true})
	return idx
}

// SetInit marks idx as the (unique) initial state.
func (e *ERA) SetInit(idx int) {
	for i := range e.states {
		e.states[i].Init = false
	}
	e.states[idx].Init = true
	e.init = idx
}

// InitIndex returns the initial state's index, or -1 if none is set.
func (e *ERA) InitIndex() int {
	return e.init
}

// SetDontCare marks or clears idx's don't-care status.
func (e *ERA) SetDontCare(idx int, dc bool) {
	e.states[idx].DontCare = dc
}

// NumStates returns the total number of state slots, live or not.
func (e *ERA) NumStates() int {
	return len(e.states)
}

// State returns a copy of the state record at idx.
func (e *ERA) State(idx int) State {
	return e.states[idx]
}

// States returns every state slot, in index order.
func (e *ERA) States() []State {
	return append([]State(nil), e.states...)
}

// LiveStates returns the indices of every live state, in index order.
func (e *ERA) LiveStates() []int {
	var out []int
	for _, s := range e.states {
		if s.Live {
			out = append(out, s.Index)
		}
	}
	return out
}

func (e *ERA) IsAccepting(idx int) bool { return e.states[idx].Accepting }
func (e *ERA) IsLive(idx int) bool      { return e.states[idx].Live }
func (e *ERA) IsDontCare(idx int) bool  { return e.states[idx].DontCare }

// Transitions returns every transition from src to tgt.
func (e *ERA) Transitions(src, tgt int) []*Transition {
	return append([]*Transition(nil), e.byPair[[2]int{src, tgt}]...)
}

// OutgoingOnEvent returns every transition leaving src whose event matches
// ev, in no particular order.
func (e *ERA) OutgoingOnEvent(src int, ev event.Event) []*Transition {
	var out []*Transition
	for _, t := range e.bySrc[src] {
		if t.Event.Name == ev.Name {
			out = append(out, t)
		}
	}
	return out
}

// Outgoing returns every transition leaving src.
func (e *ERA) Outgoing(src int) []*Transition {
	return append([]*Transition(nil), e.bySrc[src]...)
}

// LiveTransitionsOnEvent returns every transition on ev whose source and
// target are both live.
func (e *ERA) LiveTransitionsOnEvent(ev event.Event) []*Transition {
	var out []*Transition
	for _, t := range e.byEvent[ev.Name] {
		if e.states[t.Src].Live && e.states[t.Tgt].Live {
			out = append(out, t)
		}
	}
	return out
}

// EventGuardKeys returns the distinct (event, guard) keys that label at
// least one transition in the ERA, used by minimisation to drive
// forward construction.
func (e *ERA) EventGuardKeys() []struct {
	Event event.Event
	Guard guard.Guard
} {
	seen := map[string]bool{}
	var out []struct {
		Event event.Event
		Guard guard.Guard
	}
	for _, byState := range e.byEvGuard {
		for _, t := range byState {
			k := egKey(t.Event.Name, t.Guard)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, struct {
				Event event.Event
				Guard guard.Guard
			}{t.Event, t.Guard})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Event.Name != out[j].Event.Name {
			return out[i].Event.Name < out[j].Event.Name
		}
		return out[i].Guard.String() < out[j].Guard.String()
	})
	return out
}

// TargetOn returns the target state src reaches on the exact (event, guard)
// key, if any such transition exists.
func (e *ERA) TargetOn(src int, ev event.Event, g guard.Guard) (int, bool) {
	byState, ok := e.byEvGuard[egKey(ev.Name, g)]
	if !ok {
		return 0, false
	}
	t, ok := byState[src]
	if !ok {
		return 0, false
	}
	return t.Tgt, true
}

func (e *ERA) insert(t *Transition) {
	e.byPair[[2]int{t.Src, t.Tgt}] = append(e.byPair[[2]int{t.Src, t.Tgt}], t)
	e.bySrc[t.Src] = append(e.bySrc[t.Src], t)
	e.byEvent[t.Event.Name] = append(e.byEvent[t.Event.Name], t)
	key := egKey(t.Event.Name, t.Guard)
	if e.byEvGuard[key] == nil {
		e.byEvGuard[key] = map[int]*Transition{}
	}
	e.byEvGuard[key][t.Src] = t
}

func (e *ERA) remove(t *Transition) {
	rm := func(list []*Transition) []*Transition {
		out := list[:0]
		for _, x := range list {
			if x != t {
				out = append(out, x)
			}
		}
		return out
	}
	e.byPair[[2]int{t.Src, t.Tgt}] = rm(e.byPair[[2]int{t.Src, t.Tgt}])
	e.bySrc[t.Src] = rm(e.bySrc[t.Src])
	e.byEvent[t.Event.Name] = rm(e.byEvent[t.Event.Name])
	key := egKey(t.Event.Name, t.Guard)
	if byState, ok := e.byEvGuard[key]; ok {
		delete(byState, t.Src)
	}
}

// AddTransition inserts src -(ev,g)-> tgt under the deterministic "add with
// subsumption" discipline: if an existing transition on the same event has
// guard True or a guard that already subsumes g, it is left untouched and g
// is dropped; otherwise every existing transition whose guard is subsumed by
// g (all of them, when g is True) is deleted before g is inserted. On an ERA
// marked deterministic, a g that still partially overlaps a remaining guard
// is a contract violation and panics. This preserves the
// pairwise-disjoint-guard invariant without a post-hoc recompute.
func (e *ERA) AddTransition(src, tgt int, ev event.Event, g guard.Guard) {
	existing := e.OutgoingOnEvent(src, ev)

	for _, t := range existing {
		if t.Guard.IsTrue() || guard.IsContained(g, t.Guard) {
			return
		}
	}

	var toDelete []*Transition
	for _, t := range existing {
		if g.IsTrue() || guard.IsContained(t.Guard, g) {
			toDelete = append(toDelete, t)
		}
	}
	for _, t := range toDelete {
		e.remove(t)
	}

	if e.IsDeterministic {
		for _, t := range e.OutgoingOnEvent(src, ev) {
			if guard.Intersects(g, t.Guard) {
				panic(eraerr.Contract("era: guard %s on %s from state %d overlaps existing guard %s", g, ev.Name, src, t.Guard))
			}
		}
	}

	e.insert(&Transition{Src: src, Tgt: tgt, Event: ev, Guard: g})
}

// StepOn returns the unique state src moves to on (ev, g), if any
// transition's guard intersects g. Callers are expected to pass
// region-words, atoms of the guard algebra, for which guard intersection
// coincides with containment and so the result is well-defined on a
// deterministic ERA.
func (e *ERA) StepOn(src int, ev event.Event, g guard.Guard) (int, bool) {
	for _, t := range e.OutgoingOnEvent(src, ev) {
		if guard.Intersects(g, t.Guard) {
			return t.Tgt, true
		}
	}
	return 0, false
}

// Step is StepOn taking a symbolic event.
func (e *ERA) Step(src int, se symword.SymEvent) (int, bool) {
	return e.StepOn(src, se.Event, se.Guard)
}

// ReadWord folds Step left to right over w starting at src, short-circuiting
// to (0, false) on the first undefined step. Reading the ε-word leaves src
// unchanged.
func (e *ERA) ReadWord(src int, w symword.SymWord) (int, bool) {
	if w.IsEpsilon() {
		return src, true
	}
	cur := src
	for _, s := range w.Syms() {
		next, ok := e.Step(cur, s)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// Accepts reads w from the initial state and reports whether it lands on an
// accepting state. The ε-word is accepted iff the initial state is
// accepting.
func (e *ERA) Accepts(w symword.SymWord) bool {
	if w.IsEpsilon() {
		return e.IsAccepting(e.init)
	}
	tgt, ok := e.ReadWord(e.init, w)
	return ok && e.IsAccepting(tgt)
}

// String renders the ERA's live states and their transitions.
func (e *ERA) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ERA(init=%d, states=%d)\n", e.init, len(e.states))
	for _, s := range e.states {
		if !s.Live {
			continue
		}
		flags := ""
		if s.Init {
			flags += "I"
		}
		if s.Accepting {
			flags += "A"
		}
		if s.DontCare {
			flags += "?"
		}
		fmt.Fprintf(&sb, "  [%d%s] %s\n", s.Index, flags, s.Name)
		for _, t := range e.bySrc[s.Index] {
			fmt.Fprintf(&sb, "    -(%s,%s)-> %d\n", t.Event.Name, t.Guard, t.Tgt)
		}
	}
	return sb.String()
}

// Validate checks structural sanity: every transition must reference an
// existing state, and exactly one state must be initial.
func (e *ERA) Validate() error {
	if e.init < 0 || e.init >= len(e.states) {
		return eraerr.Contract("era: no valid initial state set")
	}
	for _, ts := range e.byPair {
		for _, t := range ts {
			if t.Src < 0 || t.Src >= len(e.states) || t.Tgt < 0 || t.Tgt >= len(e.states) {
				return eraerr.Contract("era: transition %s references an out-of-range state", t)
			}
		}
	}
	return nil
}

package era

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/symword"
)

var evA = event.New("a")

func activeAlphabet(names ...string) *event.Alphabet {
	var events []event.Event
	for _, n := range names {
		events = append(events, event.New(n))
	}
	alph := event.NewAlphabet(events...)
	for _, e := range events {
		alph.MarkActive(e)
	}
	return alph
}

// singleEventERA is the two-state automaton accepting exactly one a
// satisfying g.
func singleEventERA(g guard.Guard) *ERA {
	a := New(activeAlphabet("a"))
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	a.SetInit(q0)
	a.AddTransition(q0, q1, evA, g)
	return a
}

func Test_StepReadAccept(t *testing.T) {
	assert := assert.New(t)

	a := singleEventERA(guard.True())
	aTrue := symword.SymEvent{Event: evA, Guard: guard.True()}

	assert.False(a.Accepts(symword.Epsilon()))
	assert.True(a.Accepts(symword.New(aTrue)))
	// no edge out of q1: reading a second a short-circuits to reject.
	assert.False(a.Accepts(symword.New(aTrue, aTrue)))

	next, ok := a.Step(a.InitIndex(), aTrue)
	if assert.True(ok) {
		assert.Equal(1, next)
	}
	_, ok = a.Step(1, aTrue)
	assert.False(ok)
}

func Test_StepOn_RegionIntersection(t *testing.T) {
	assert := assert.New(t)

	a := singleEventERA(guard.NewSimple(evA, guard.Eq, 1))

	// the region a==1 intersects the guard; the others do not.
	_, ok := a.StepOn(0, evA, guard.NewSimple(evA, guard.Eq, 1))
	assert.True(ok)
	_, ok = a.StepOn(0, evA, guard.NewSimple(evA, guard.Eq, 0))
	assert.False(ok)
	_, ok = a.StepOn(0, evA, guard.NewSimple(evA, guard.Gt, 1))
	assert.False(ok)
}

func Test_AddTransition_Subsumption(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a")

	t.Run("subsumed guard is dropped", func(t *testing.T) {
		a := New(alph)
		q0 := a.AddState("q0", false)
		q1 := a.AddState("q1", true)
		a.SetInit(q0)

		a.AddTransition(q0, q1, evA, guard.True())
		a.AddTransition(q0, q1, evA, guard.NewSimple(evA, guard.Le, 1))

		out := a.OutgoingOnEvent(q0, evA)
		if assert.Len(out, 1) {
			assert.True(out[0].Guard.IsTrue())
		}
	})

	t.Run("subsuming guard replaces the existing one", func(t *testing.T) {
		a := New(alph)
		q0 := a.AddState("q0", false)
		q1 := a.AddState("q1", true)
		a.SetInit(q0)

		a.AddTransition(q0, q1, evA, guard.NewSimple(evA, guard.Le, 1))
		a.AddTransition(q0, q1, evA, guard.True())

		out := a.OutgoingOnEvent(q0, evA)
		if assert.Len(out, 1) {
			assert.True(out[0].Guard.IsTrue())
		}
	})

	t.Run("disjoint guards coexist", func(t *testing.T) {
		a := New(alph)
		q0 := a.AddState("q0", false)
		q1 := a.AddState("q1", true)
		q2 := a.AddState("q2", false)
		a.SetInit(q0)

		a.AddTransition(q0, q1, evA, guard.NewSimple(evA, guard.Eq, 0))
		a.AddTransition(q0, q2, evA, guard.NewSimple(evA, guard.Gt, 0))

		assert.Len(a.OutgoingOnEvent(q0, evA), 2)
	})
}

func Test_TargetOn(t *testing.T) {
	assert := assert.New(t)

	g := guard.NewSimple(evA, guard.Eq, 1)
	a := singleEventERA(g)

	tgt, ok := a.TargetOn(0, evA, g)
	if assert.True(ok) {
		assert.Equal(1, tgt)
	}

	// exact-key lookup, not intersection: a different guard misses.
	_, ok = a.TargetOn(0, evA, guard.True())
	assert.False(ok)
}

func Test_EventGuardKeys(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a", "b")
	evB := event.New("b")
	a := New(alph)
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	a.SetInit(q0)

	g := guard.NewSimple(evA, guard.Eq, 1)
	a.AddTransition(q0, q1, evA, g)
	a.AddTransition(q1, q0, evA, g)
	a.AddTransition(q0, q1, evB, guard.True())

	keys := a.EventGuardKeys()
	if assert.Len(keys, 2) {
		assert.Equal("a", keys[0].Event.Name)
		assert.True(keys[0].Guard.Equal(g))
		assert.Equal("b", keys[1].Event.Name)
		assert.True(keys[1].Guard.IsTrue())
	}
}

func Test_RemoveSinks(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a")
	a := New(alph)
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	q2 := a.AddState("q2", false) // non-accepting, self-loop only
	q3 := a.AddState("q3", false) // reaches only q2
	a.SetInit(q0)

	a.AddTransition(q0, q1, evA, guard.NewSimple(evA, guard.Eq, 0))
	a.AddTransition(q0, q3, evA, guard.NewSimple(evA, guard.Gt, 0))
	a.AddTransition(q2, q2, evA, guard.True())
	a.AddTransition(q3, q2, evA, guard.True())

	a.RemoveSinks()

	// q2 is a sink; removing it leaves q3 with no live outgoing edge, so the
	// fixed point removes q3 too.
	assert.True(a.IsLive(q0))
	assert.True(a.IsLive(q1))
	assert.False(a.IsLive(q2))
	assert.False(a.IsLive(q3))

	// q1 is accepting and edge-free: accepting states are never sinks.
	assert.Equal([]int{0, 1}, a.LiveStates())
}

func Test_Validate(t *testing.T) {
	assert := assert.New(t)

	a := New(activeAlphabet("a"))
	assert.Error(a.Validate(), "no initial state")

	q0 := a.AddState("q0", true)
	a.SetInit(q0)
	assert.NoError(a.Validate())
}

func Test_Product(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	alph := activeAlphabet("a")
	g0 := guard.NewSimple(evA, guard.Eq, 0)
	gPos := guard.NewSimple(evA, guard.Gt, 0)

	// x accepts exactly one a with a==0; y accepts any one a.
	x := New(alph)
	x0 := x.AddState("x0", false)
	x1 := x.AddState("x1", true)
	x.SetInit(x0)
	x.AddTransition(x0, x1, evA, g0)

	y := New(alph)
	y0 := y.AddState("y0", false)
	y1 := y.AddState("y1", true)
	y.SetInit(y0)
	y.AddTransition(y0, y1, evA, g0)
	y.AddTransition(y0, y1, evA, gPos)

	p := Product(x, y)
	require.NoError(p.Validate())
	assert.True(p.IsDeterministic)

	// the product accepts exactly the intersection: one a with a==0.
	assert.True(p.Accepts(symword.New(symword.SymEvent{Event: evA, Guard: g0})))
	assert.False(p.Accepts(symword.New(symword.SymEvent{Event: evA, Guard: gPos})))
	assert.False(p.Accepts(symword.Epsilon()))

	// initial/accepting only when both sides are.
	init := p.State(p.InitIndex())
	assert.False(init.Accepting)
	accepting := 0
	for _, s := range p.States() {
		if s.Accepting {
			accepting++
		}
	}
	assert.Equal(1, accepting)
}

func Test_Product_DontCarePropagates(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a")

	x := New(alph)
	x0 := x.AddState("x0", true)
	x.SetInit(x0)
	x.SetDontCare(x0, true)

	y := New(alph)
	y0 := y.AddState("y0", true)
	y.SetInit(y0)

	p := Product(x, y)
	assert.True(p.IsDontCare(p.InitIndex()))
}

func Test_Complement(t *testing.T) {
	assert := assert.New(t)

	a := singleEventERA(guard.True())
	c := Complement(a)

	assert.True(c.Accepts(symword.Epsilon()))
	assert.False(c.Accepts(symword.New(symword.SymEvent{Event: evA, Guard: guard.True()})))

	// complementing twice restores every accepting flag.
	cc := Complement(c)
	for i, s := range a.States() {
		assert.Equal(s.Accepting, cc.State(i).Accepting)
	}
}

func Test_Complement_PanicsOnNondeterministic(t *testing.T) {
	assert := assert.New(t)

	a := singleEventERA(guard.True())
	a.IsDeterministic = false
	assert.Panics(func() { Complement(a) })
}

func Test_WithDontCareAccepting(t *testing.T) {
	assert := assert.New(t)

	a := singleEventERA(guard.True())
	a.SetDontCare(0, true)

	forced := a.WithDontCareAccepting()
	assert.True(forced.IsAccepting(0))
	assert.True(forced.IsAccepting(1))

	// the original is untouched.
	assert.False(a.IsAccepting(0))
}

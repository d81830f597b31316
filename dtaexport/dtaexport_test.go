package dtaexport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
)

func Test_Render(t *testing.T) {
	assert := assert.New(t)

	evA := event.New("a")
	alph := event.NewAlphabet(evA, event.New("b"))
	alph.MarkActive(evA)

	a := era.New(alph)
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	a.SetInit(q0)
	a.AddTransition(q0, q1, evA, guard.NewSimple(evA, guard.Eq, 1))
	a.AddTransition(q1, q0, evA, guard.NewSimple(evA, guard.Gt, 1))

	out := Render(a)

	assert.Contains(out, "alphabet: a b\n")
	assert.Contains(out, "state q0 [initial]\n")
	assert.Contains(out, "state q1 [accepting]\n")

	// the equality guard is fused into its two-sided bound form.
	assert.Contains(out, "q0 -> q1 : a { clk_a.at(a) >= 1 && clk_a.at(a) <= 1 } reset(clk_a)\n")
	assert.Contains(out, "q1 -> q0 : a { clk_a.at(a) > 1 } reset(clk_a)\n")
}

func Test_Render_SkipsDeadStates(t *testing.T) {
	assert := assert.New(t)

	evA := event.New("a")
	alph := event.NewAlphabet(evA)
	alph.MarkActive(evA)

	a := era.New(alph)
	q0 := a.AddState("q0", true)
	q1 := a.AddState("qsink", false)
	a.SetInit(q0)
	a.AddTransition(q0, q1, evA, guard.True())
	a.AddTransition(q1, q1, evA, guard.True())
	a.RemoveSinks()

	out := Render(a)
	assert.NotContains(out, "qsink")
	assert.Contains(out, "state q0 [initial,accepting]\n")
}

func Test_Render_TrueGuard(t *testing.T) {
	assert := assert.New(t)

	evA := event.New("a")
	alph := event.NewAlphabet(evA)
	alph.MarkActive(evA)

	a := era.New(alph)
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	a.SetInit(q0)
	a.AddTransition(q0, q1, evA, guard.True())

	out := Render(a)
	assert.True(strings.Contains(out, "q0 -> q1 : a { true } reset(clk_a)"))
}

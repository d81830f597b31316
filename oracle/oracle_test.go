package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvard/eralearn/pkg/era"
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

func Test_BFSOracle_Reachable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	a := era.New(activeAlphabet("a"))
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", false)
	q2 := a.AddState("q2", true)
	a.SetInit(q0)
	a.AddTransition(q0, q1, evA, guard.True())
	a.AddTransition(q1, q2, evA, guard.True())

	w, found, err := BFSOracle{}.Reachable(a, true)
	require.NoError(err)
	require.True(found)
	assert.Equal(2, w.Len())

	// looking for a rejecting state: the initial state already matches, so
	// the witness is ε.
	w, found, err = BFSOracle{}.Reachable(a, false)
	require.NoError(err)
	require.True(found)
	assert.True(w.IsEpsilon())
}

func Test_BFSOracle_Unreachable(t *testing.T) {
	assert := assert.New(t)

	a := era.New(activeAlphabet("a"))
	q0 := a.AddState("q0", false)
	a.SetInit(q0)
	a.AddTransition(q0, q0, evA, guard.True())

	_, found, err := BFSOracle{}.Reachable(a, true)
	assert.NoError(err)
	assert.False(found)
}

func Test_BFSOracle_EpsilonWitness(t *testing.T) {
	assert := assert.New(t)

	a := era.New(activeAlphabet("a"))
	q0 := a.AddState("q0", true)
	a.SetInit(q0)

	w, found, err := BFSOracle{}.Reachable(a, true)
	assert.NoError(err)
	if assert.True(found) {
		assert.True(w.IsEpsilon())
	}
}

func Test_BFSOracle_PrunesInfeasiblePaths(t *testing.T) {
	assert := assert.New(t)

	// the only path to the accepting state carries a contradictory guard, as
	// a product of disjoint-guard automata would; a concrete reachability
	// tool cannot fire it.
	a := era.New(activeAlphabet("a"))
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	a.SetInit(q0)
	contradiction := guard.NewConj([]guard.Simple{
		{Event: evA, Cmp: guard.Eq, Bound: 0},
		{Event: evA, Cmp: guard.Eq, Bound: 1},
	})
	a.AddTransition(q0, q1, evA, contradiction)

	_, found, err := BFSOracle{}.Reachable(a, true)
	assert.NoError(err)
	assert.False(found)
}

func Test_Digraph_RoundTrip(t *testing.T) {
	alph := activeAlphabet("a", "b")
	evB := event.New("b")

	testCases := []struct {
		name string
		word symword.SymWord
	}{
		{
			name: "epsilon",
			word: symword.Epsilon(),
		},
		{
			name: "single symbol",
			word: symword.New(symword.SymEvent{Event: evA, Guard: guard.NewSimple(evA, guard.Eq, 1)}),
		},
		{
			name: "mixed events and guards",
			word: symword.New(
				symword.SymEvent{Event: evA, Guard: guard.True()},
				symword.SymEvent{Event: evB, Guard: guard.NewConj([]guard.Simple{
					{Event: evA, Cmp: guard.Gt, Bound: 0},
					{Event: evB, Cmp: guard.Le, Bound: 2},
				})},
			),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			text := Digraph(tc.word)
			parsed, err := ParseDigraph(alph, text)
			require.NoError(err)
			assert.True(parsed.Equal(tc.word), "round trip changed %s into %s", tc.word, parsed)
		})
	}
}

func Test_ParseDigraph_Errors(t *testing.T) {
	alph := activeAlphabet("a")

	testCases := []struct {
		name  string
		input string
	}{
		{
			name:  "no initial node",
			input: "digraph oracle {\n  n0 [foo=\"bar\"];\n}\n",
		},
		{
			name: "cycle in the path",
			input: "digraph oracle {\n" +
				"  n0 [initial=\"true\"];\n" +
				"  n0 -> n1 [delay=\"0\", guard=\"True\", reset=\"a\", src_invariant=\"True\", tgt_invariant=\"True\", vedge=\"<0@a>\"];\n" +
				"  n1 -> n0 [delay=\"0\", guard=\"True\", reset=\"a\", src_invariant=\"True\", tgt_invariant=\"True\", vedge=\"<1@a>\"];\n" +
				"}\n",
		},
		{
			name: "bad guard on an edge",
			input: "digraph oracle {\n" +
				"  n0 [initial=\"true\"];\n" +
				"  n0 -> n1 [delay=\"0\", guard=\"z<=1\", reset=\"z\", src_invariant=\"True\", tgt_invariant=\"True\", vedge=\"<0@z>\"];\n" +
				"}\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			_, err := ParseDigraph(alph, tc.input)
			assert.Error(err)
		})
	}
}

package era

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halvard/eralearn/internal/util"
	"github.com/halvard/eralearn/pkg/guard"
)

func Test_Incompatible(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a")
	g := guard.True()

	a := New(alph)
	q0 := a.AddState("q0", false)
	q1 := a.AddState("q1", true)
	q2 := a.AddState("q2", false)
	q3 := a.AddState("q3", false)
	a.SetDontCare(q3, true)
	a.SetInit(q0)

	// q0 and q2 step to an incompatible pair on the same key.
	a.AddTransition(q0, q1, evA, g)
	a.AddTransition(q2, q2, evA, g)

	inc := a.Incompatible()

	// direct acceptance mismatch.
	assert.True(inc[mkPair(q0, q1)])
	assert.True(inc[mkPair(q1, q2)])

	// don't-care is compatible with both accepting and rejecting.
	assert.False(inc[mkPair(q1, q3)])
	assert.False(inc[mkPair(q0, q3)])

	// propagated through the step relation: q0 -a-> q1 vs q2 -a-> q2 and
	// {q1,q2} incompatible.
	assert.True(inc[mkPair(q0, q2)])
}

func Test_MaximalCompatibleSets(t *testing.T) {
	testCases := []struct {
		name   string
		build  func() *ERA
		expect []string
	}{
		{
			name: "all compatible stays one class",
			build: func() *ERA {
				a := New(activeAlphabet("a"))
				a.AddState("q0", true)
				a.AddState("q1", true)
				a.SetInit(0)
				return a
			},
			expect: []string{"{0, 1}"},
		},
		{
			name: "acceptance mismatch splits",
			build: func() *ERA {
				a := New(activeAlphabet("a"))
				a.AddState("q0", true)
				a.AddState("q1", false)
				a.AddState("q2", true)
				a.SetInit(0)
				return a
			},
			expect: []string{"{0, 2}", "{1}"},
		},
		{
			name: "don't-care joins every class",
			build: func() *ERA {
				a := New(activeAlphabet("a"))
				a.AddState("q0", true)
				a.AddState("q1", false)
				a.AddState("q2", false)
				a.SetDontCare(2, true)
				a.SetInit(0)
				return a
			},
			expect: []string{"{0, 2}", "{1, 2}"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			sets := tc.build().MaximalCompatibleSets()
			var actual []string
			for _, m := range sets {
				actual = append(actual, m.String())
			}
			assert.ElementsMatch(tc.expect, actual)
		})
	}
}

func Test_MaximalCompatibleSets_NoSubsets(t *testing.T) {
	assert := assert.New(t)

	alph := activeAlphabet("a")
	a := New(alph)
	a.AddState("q0", true)
	a.AddState("q1", false)
	a.AddState("q2", false)
	a.AddState("q3", false)
	a.SetDontCare(3, true)
	a.SetInit(0)

	sets := a.MaximalCompatibleSets()
	for i, m := range sets {
		for j, o := range sets {
			if i == j {
				continue
			}
			assert.False(m.IsSubsetOf(o) && !o.IsSubsetOf(m),
				"class %s is a strict subset of %s", m, o)
		}
	}

	// every live state appears in some class.
	covered := util.NewIntSet()
	for _, m := range sets {
		covered = covered.Union(m)
	}
	assert.Equal(util.NewIntSet(0, 1, 2, 3), covered)
}

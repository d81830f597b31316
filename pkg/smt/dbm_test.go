package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Feasible(t *testing.T) {
	testCases := []struct {
		name        string
		constraints []Constraint
		expect      bool
	}{
		{
			name:        "no constraints",
			constraints: nil,
			expect:      true,
		},
		{
			name: "single satisfiable bound",
			constraints: []Constraint{
				{X: "x", Op: Le, Bound: 1},
			},
			expect: true,
		},
		{
			name: "upper bound below zero contradicts non-negativity",
			constraints: []Constraint{
				{X: "x", Op: Lt, Bound: 0},
			},
			expect: false,
		},
		{
			name: "zero is still reachable with a closed bound",
			constraints: []Constraint{
				{X: "x", Op: Le, Bound: 0},
			},
			expect: true,
		},
		{
			name: "contradictory interval",
			constraints: []Constraint{
				{X: "x", Op: Le, Bound: 1},
				{X: "x", Op: Ge, Bound: 2},
			},
			expect: false,
		},
		{
			name: "open interval inside a unit step",
			constraints: []Constraint{
				{X: "x", Op: Gt, Bound: 0},
				{X: "x", Op: Lt, Bound: 1},
			},
			expect: true,
		},
		{
			name: "strict and closed bounds meeting at a point",
			constraints: []Constraint{
				{X: "x", Op: Lt, Bound: 1},
				{X: "x", Op: Ge, Bound: 1},
			},
			expect: false,
		},
		{
			name: "equality conjoined with a compatible bound",
			constraints: []Constraint{
				{X: "x", Op: Eq, Bound: 2},
				{X: "x", Op: Le, Bound: 3},
			},
			expect: true,
		},
		{
			name: "difference constraint chain is consistent",
			constraints: []Constraint{
				{X: "t1", Ref: "t0", Op: Ge, Bound: 0},
				{X: "t0", Op: Eq, Bound: 1},
				{X: "t1", Op: Eq, Bound: 2},
			},
			expect: true,
		},
		{
			name: "difference constraint chain contradicts ordering",
			constraints: []Constraint{
				{X: "t1", Ref: "t0", Op: Ge, Bound: 0},
				{X: "t0", Op: Eq, Bound: 2},
				{X: "t1", Op: Eq, Bound: 1},
			},
			expect: false,
		},
		{
			name: "elapsed time between occurrences",
			constraints: []Constraint{
				{X: "t1", Ref: "t0", Op: Eq, Bound: 1},
				{X: "t0", Op: Ge, Bound: 3},
			},
			expect: true,
		},
		{
			name: "negative cycle through three variables",
			constraints: []Constraint{
				{X: "t1", Ref: "t0", Op: Ge, Bound: 1},
				{X: "t2", Ref: "t1", Op: Ge, Bound: 1},
				{X: "t2", Ref: "t0", Op: Le, Bound: 1},
			},
			expect: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tc.expect, Feasible(tc.constraints))
		})
	}
}

func Test_Negate(t *testing.T) {
	assert := assert.New(t)

	alts := Negate(Constraint{X: "x", Op: Eq, Bound: 2})
	if assert.Len(alts, 2) {
		assert.Equal(Lt, alts[0].Op)
		assert.Equal(Gt, alts[1].Op)
	}

	alts = Negate(Constraint{X: "x", Op: Le, Bound: 2})
	if assert.Len(alts, 1) {
		assert.Equal(Gt, alts[0].Op)
		assert.Equal(2, alts[0].Bound)
	}

	alts = Negate(Constraint{X: "x", Ref: "y", Op: Gt, Bound: 1})
	if assert.Len(alts, 1) {
		assert.Equal(Le, alts[0].Op)
		assert.Equal("y", alts[0].Ref)
	}
}

func Test_Negate_ExcludesOriginal(t *testing.T) {
	// a constraint and any of its negation's alternatives must be jointly
	// infeasible.
	testCases := []Constraint{
		{X: "x", Op: Lt, Bound: 2},
		{X: "x", Op: Le, Bound: 2},
		{X: "x", Op: Eq, Bound: 2},
		{X: "x", Op: Ge, Bound: 2},
		{X: "x", Op: Gt, Bound: 2},
	}

	for _, c := range testCases {
		t.Run(c.Op.String(), func(t *testing.T) {
			assert := assert.New(t)
			for _, alt := range Negate(c) {
				assert.False(Feasible([]Constraint{c, alt}))
			}
		})
	}
}

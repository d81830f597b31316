// Package smt is the constraint-feasibility backend shared by the guard
// algebra (pkg/guard) and symbolic acceptance (pkg/era/accept). Every
// constraint either component ever builds is a difference constraint over
// non-negative reals: a single clock bounded against zero, or one clock
// bounded against another by way of a shared reference event. That fragment
// is decided exactly by the textbook technique used in real timed-automaton
// model checkers: build a weighted constraint graph and run Bellman-Ford
// looking for a negative cycle (Cormen et al., "Difference Constraints and
// Shortest Paths").
package smt

import "fmt"

// Op is a constraint comparator.
type Op int

const (
	Lt Op = iota
	Le
	Eq
	Ge
	Gt
)

func (o Op) String() string {
	switch o {
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

// zero is the reserved node name representing the constant 0. No caller may
// use it as a variable name.
const zero = ""

// Constraint is "X - Ref Op Bound". Ref == "" means X is bounded directly
// against the constant zero (the common case for a plain guard simple or for
// an event with no prior occurrence in a word).
type Constraint struct {
	X     string
	Ref   string
	Op    Op
	Bound int
}

// strictEpsilon approximates a strict inequality by tightening the
// corresponding non-strict bound by a small amount, the standard trick for
// reusing a non-strict shortest-path formulation to decide strict difference
// constraints.
const strictEpsilon = 1e-6

// cycleTolerance absorbs floating point drift accumulated across a bounded
// number of strict edges so a merely-zero cycle isn't mistaken for negative.
const cycleTolerance = 1e-9

type edge struct {
	from, to string
	weight   float64
}

// edgesFor expands one Constraint into the one or two directed edges of the
// constraint graph. Edge (u -> v, w) encodes "value(v) - value(u) <= w".
func edgesFor(c Constraint) []edge {
	ref := c.Ref
	if ref == "" {
		ref = zero
	}
	switch c.Op {
	case Le:
		return []edge{{ref, c.X, float64(c.Bound)}}
	case Lt:
		return []edge{{ref, c.X, float64(c.Bound) - strictEpsilon}}
	case Ge:
		return []edge{{c.X, ref, float64(-c.Bound)}}
	case Gt:
		return []edge{{c.X, ref, float64(-c.Bound) - strictEpsilon}}
	case Eq:
		return []edge{
			{ref, c.X, float64(c.Bound)},
			{c.X, ref, float64(-c.Bound)},
		}
	default:
		panic(fmt.Sprintf("smt: unknown Op %d", c.Op))
	}
}

// Feasible reports whether the given conjunction of difference constraints,
// together with every named variable implicitly bounded below by zero
// (non-negative real clocks), is satisfiable.
func Feasible(constraints []Constraint) bool {
	nodes := map[string]bool{zero: true}
	var edges []edge

	addVar := func(name string) {
		nodes[name] = true
		if name != zero {
			// every clock/timestamp variable is non-negative.
			edges = append(edges, edge{name, zero, 0})
		}
	}

	for _, c := range constraints {
		ref := c.Ref
		if ref == "" {
			ref = zero
		}
		addVar(c.X)
		addVar(ref)
		edges = append(edges, edgesFor(c)...)
	}

	dist := make(map[string]float64, len(nodes))
	for n := range nodes {
		dist[n] = 0
	}

	n := len(nodes)
	for i := 0; i < n; i++ {
		updated := false
		for _, e := range edges {
			if dist[e.from]+e.weight < dist[e.to]-cycleTolerance {
				dist[e.to] = dist[e.from] + e.weight
				updated = true
			}
		}
		if !updated {
			return true
		}
	}

	for _, e := range edges {
		if dist[e.from]+e.weight < dist[e.to]-cycleTolerance {
			return false
		}
	}
	return true
}

// Negate returns the alternative constraints whose disjunction is the
// logical negation of c. Negating an equality yields two alternatives ("<"
// and ">"); every other operator negates to exactly one.
func Negate(c Constraint) []Constraint {
	flip := func(op Op) Op {
		switch op {
		case Lt:
			return Ge
		case Le:
			return Gt
		case Ge:
			return Lt
		case Gt:
			return Le
		default:
			panic("smt: Negate called with non-invertible Op")
		}
	}
	if c.Op == Eq {
		return []Constraint{
			{X: c.X, Ref: c.Ref, Op: Lt, Bound: c.Bound},
			{X: c.X, Ref: c.Ref, Op: Gt, Bound: c.Bound},
		}
	}
	return []Constraint{{X: c.X, Ref: c.Ref, Op: flip(c.Op), Bound: c.Bound}}
}

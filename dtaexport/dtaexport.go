// Package dtaexport renders an ERA as a textual source file in a
// third-party timed-automaton learning toolkit's native format:
// alphabet, states, and transitions with guards written as clock
// comparisons against the event's own clock, fusing an equality into its
// two-sided bound form.
package dtaexport

import (
	"fmt"
	"strings"

	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/guard"
)

// Render writes a to the toolkit's textual format.
func Render(a *era.ERA) string {
	var sb strings.Builder

	sb.WriteString("alphabet:")
	for _, ev := range a.Alphabet.Events() {
		fmt.Fprintf(&sb, " %s", ev.Name)
	}
	sb.WriteString("\n\n")

	for _, s := range a.States() {
		if !s.Live {
			continue
		}
		flags := []string{}
		if s.Init {
			flags = append(flags, "initial")
		}
		if s.Accepting {
			flags = append(flags, "accepting")
		}
		fmt.Fprintf(&sb, "state %s", s.Name)
		if len(flags) > 0 {
			fmt.Fprintf(&sb, " [%s]", strings.Join(flags, ","))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	for _, s := range a.States() {
		if !s.Live {
			continue
		}
		for _, t := range a.Outgoing(s.Index) {
			if !a.IsLive(t.Tgt) {
				continue
			}
			fmt.Fprintf(&sb, "%s -> %s : %s { %s } reset(clk_%s)\n",
				s.Name, a.State(t.Tgt).Name, t.Event.Name, renderGuard(t.Guard), t.Event.Name)
		}
	}

	return sb.String()
}

// renderGuard fuses an equality bound into its two-sided "clk.at(i) >= k &&
// clk.at(i) <= k" form; every other comparator is rendered
// directly, and True renders as the literal "true".
func renderGuard(g guard.Guard) string {
	if g.IsTrue() {
		return "true"
	}
	var parts []string
	for _, s := range g.Conjuncts() {
		clk := fmt.Sprintf("clk_%s.at(%s)", s.Event.Name, s.Event.Name)
		if s.Cmp == guard.Eq {
			parts = append(parts, fmt.Sprintf("%s >= %d", clk, s.Bound), fmt.Sprintf("%s <= %d", clk, s.Bound))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s %d", clk, s.Cmp, s.Bound))
	}
	return strings.Join(parts, " && ")
}

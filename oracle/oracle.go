// Package oracle implements the reachability-oracle protocol: an
// ERA and a target acceptance label go in, either "unreachable" or a
// DOT-style digraph describing a witnessing path comes out. The in-process
// BFSOracle below plays the oracle's role directly over the ERA's own
// transition graph; Digraph/ParseDigraph implement the textual wire format
// for driving (or recording results from) an external oracle process
// instead.
package oracle

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/symword"
)

// Oracle answers reachability queries: is some state with Accepting==label
// reachable from a's initial state, and if so, by what region-word.
type Oracle interface {
	Reachable(a *era.ERA, label bool) (symword.SymWord, bool, error)
}

// BFSOracle answers queries by breadth-first search over a's live
// transition graph, the witness word being the shortest sequence of
// (event, guard) labels reaching a matching state. An edge whose guard makes
// the accumulated word's timed language empty is never traversed; a product
// automaton routinely carries such edges (two disjoint guards conjoined),
// and a concrete reachability tool would not fire them either.
type BFSOracle struct{}

type bfsFrame struct {
	state int
	word  []symword.SymEvent
}

// Reachable implements Oracle by BFS.
func (BFSOracle) Reachable(a *era.ERA, label bool) (symword.SymWord, bool, error) {
	init := a.InitIndex()
	if init < 0 {
		return symword.SymWord{}, false, eraerr.Contract("oracle: ERA has no initial state")
	}
	if a.IsAccepting(init) == label {
		return symword.Epsilon(), true, nil
	}

	visited := map[int]bool{init: true}
	queue := []bfsFrame{{state: init}}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, t := range a.Outgoing(f.state) {
			if !a.IsLive(t.Tgt) || visited[t.Tgt] {
				continue
			}
			word := append(append([]symword.SymEvent(nil), f.word...), symword.SymEvent{Event: t.Event, Guard: t.Guard})
			if symword.New(word...).IsEmpty() {
				continue
			}
			if a.IsAccepting(t.Tgt) == label {
				return symword.New(word...), true, nil
			}
			visited[t.Tgt] = true
			queue = append(queue, bfsFrame{state: t.Tgt, word: word})
		}
	}
	return symword.SymWord{}, false, nil
}

// Digraph renders w as the DOT-style path digraph the external oracle
// protocol emits: an initial node, then one edge per symbol,
// vedge carrying the firing event.
func Digraph(w symword.SymWord) string {
	var sb strings.Builder
	sb.WriteString("digraph oracle {\n")
	sb.WriteString("  n0 [initial=\"true\"];\n")
	if w.IsEpsilon() {
		sb.WriteString("}\n")
		return sb.String()
	}
	for i, sym := range w.Syms() {
		fmt.Fprintf(&sb, "  n%d -> n%d [delay=\"0\", guard=\"%s\", reset=\"%s\", src_invariant=\"True\", tgt_invariant=\"True\", vedge=\"<%d@%s>\"];\n",
			i, i+1, sym.Guard, sym.Event.Name, i, sym.Event.Name)
	}
	sb.WriteString("}\n")
	return sb.String()
}

var (
	initNodeRE = regexp.MustCompile(`^\s*(\w+)\s*\[.*initial="true".*\];?\s*$`)
	edgeRE     = regexp.MustCompile(`^\s*(\w+)\s*->\s*(\w+)\s*\[delay="[^"]*",\s*guard="([^"]*)",\s*reset="([^"]*)",\s*src_invariant="[^"]*",\s*tgt_invariant="[^"]*",\s*vedge="<[^@]*@([^>]*)>"\];?\s*$`)
)

// ParseDigraph recovers a SymWord by locating the node with initial="true"
// and following edges of the exact form the oracle emits, in the order they
// chain from that node.
func ParseDigraph(alph *event.Alphabet, text string) (symword.SymWord, error) {
	var initNode string
	type parsedEdge struct {
		src, tgt string
		g        guard.Guard
		ev       event.Event
	}
	edgesBySrc := map[string]parsedEdge{}

	for _, line := range strings.Split(text, "\n") {
		if m := initNodeRE.FindStringSubmatch(line); m != nil {
			initNode = m[1]
			continue
		}
		if m := edgeRE.FindStringSubmatch(line); m != nil {
			g, err := guard.Parse(alph, m[3])
			if err != nil {
				return symword.SymWord{}, eraerr.WrapInvalidInput(err, "oracle: bad guard in digraph edge %q", line)
			}
			edgesBySrc[m[1]] = parsedEdge{src: m[1], tgt: m[2], g: g, ev: event.New(m[5])}
		}
	}
	if initNode == "" {
		return symword.SymWord{}, eraerr.InvalidInput("oracle: digraph has no node with initial=\"true\"")
	}

	var syms []symword.SymEvent
	cur := initNode
	seen := map[string]bool{}
	for {
		e, ok := edgesBySrc[cur]
		if !ok {
			break
		}
		if seen[cur] {
			return symword.SymWord{}, eraerr.InvalidInput("oracle: digraph path revisits node %q", cur)
		}
		seen[cur] = true
		syms = append(syms, symword.SymEvent{Event: e.ev, Guard: e.g})
		cur = e.tgt
	}
	return symword.New(syms...), nil
}

// Package obstable implements the symbolic observation table:
// the S/E/T structure an L*/Rivest-Schapire-style learner fills against a
// system under learning, its close/consistent fixed point, 3-valued
// hypothesis synthesis, and counterexample integration.
package obstable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/region"
	"github.com/halvard/eralearn/pkg/symword"
)

// Cell is one observation table entry.
type Cell int8

const (
	Reject   Cell = 0
	Accept   Cell = 1
	DontCare Cell = -1
)

func (c Cell) String() string {
	switch c {
	case Accept:
		return "1"
	case Reject:
		return "0"
	default:
		return "?"
	}
}

// Table is the observation table over a system under learning. S and E
// grow monotonically; cells, once set, are never changed.
type Table struct {
	Alphabet *event.Alphabet
	SUL      *era.ERA
	M        int
	Regions  []guard.Guard
	A        []symword.SymEvent

	S []symword.SymWord
	E []symword.SymWord

	T         map[string][]Cell
	TSymbolic map[string]symword.SymWord

	readWordInSUL     map[string]int
	inconsistentWords map[string]bool

	// OnMembershipQuery, when set, is invoked once per prefix read on the SUL
	// that misses the SUL-state cache, letting a caller maintain its own
	// query-count statistics.
	OnMembershipQuery func()
}

// New builds an empty table over sul's alphabet at bound m, seeded with the
// ε row and ε column.
func New(sul *era.ERA, m int) *Table {
	regions := region.Enumerate(m, sul.Alphabet.ActiveEvents())
	var a []symword.SymEvent
	for _, l := range sul.Alphabet.Events() {
		for _, r := range regions {
			a = append(a, symword.SymEvent{Event: l, Guard: r})
		}
	}

	tbl := &Table{
		Alphabet:          sul.Alphabet,
		SUL:               sul,
		M:                 m,
		Regions:           regions,
		A:                 a,
		E:                 []symword.SymWord{symword.Epsilon()},
		T:                 map[string][]Cell{},
		TSymbolic:         map[string]symword.SymWord{},
		readWordInSUL:     map[string]int{},
		inconsistentWords: map[string]bool{},
	}
	tbl.ensureRow(symword.Epsilon())
	tbl.S = append(tbl.S, symword.Epsilon())
	return tbl
}

func cellsKey(cells []Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

func (tbl *Table) hasRow(key string) bool {
	_, ok := tbl.T[key]
	return ok
}

func (tbl *Table) containsInS(w symword.SymWord) bool {
	key := w.String()
	for _, s := range tbl.S {
		if s.String() == key {
			return true
		}
	}
	return false
}

// sulStateAfter returns the SUL state reached after reading w from the
// initial state, caching by w's printable form.
func (tbl *Table) sulStateAfter(w symword.SymWord) (int, bool) {
	key := w.String()
	if v, ok := tbl.readWordInSUL[key]; ok {
		if v < 0 {
			return 0, false
		}
		return v, true
	}
	if tbl.OnMembershipQuery != nil {
		tbl.OnMembershipQuery()
	}
	state := tbl.SUL.InitIndex()
	ok := true
	for _, sym := range w.Syms() {
		next, stepOK := tbl.SUL.Step(state, sym)
		if !stepOK {
			ok = false
			break
		}
		state = next
	}
	if ok {
		tbl.readWordInSUL[key] = state
		return state, true
	}
	tbl.readWordInSUL[key] = -1
	return 0, false
}

// evaluate decides T[p][e]: reads p on the SUL through the SUL-state cache,
// then steps through e's own symbols without caching them.
func (tbl *Table) evaluate(p, e symword.SymWord) Cell {
	state, ok := tbl.sulStateAfter(p)
	if !ok {
		return Reject
	}
	for _, sym := range e.Syms() {
		next, stepOK := tbl.SUL.Step(state, sym)
		if !stepOK {
			return Reject
		}
		state = next
	}
	if tbl.SUL.IsAccepting(state) {
		return Accept
	}
	return Reject
}

// isEmptyCached decides w's row-emptiness, reusing an already-empty proper
// prefix's verdict before falling back to the SMT-backed check.
func (tbl *Table) isEmptyCached(w symword.SymWord) bool {
	key := w.String()
	if v, ok := tbl.inconsistentWords[key]; ok {
		return v
	}
	syms := w.Syms()
	for k := 0; k < len(syms); k++ {
		prefix := symword.New(syms[:k]...)
		if v, ok := tbl.inconsistentWords[prefix.String()]; ok && v {
			tbl.inconsistentWords[key] = true
			return true
		}
	}
	empty := w.IsEmpty()
	tbl.inconsistentWords[key] = empty
	return empty
}

// ensureRow fills w's row if absent: all don't-care if w's language is
// empty, else one cell per column via evaluate.
func (tbl *Table) ensureRow(w symword.SymWord) {
	key := w.String()
	if tbl.hasRow(key) {
		return
	}
	tbl.TSymbolic[key] = w

	if tbl.isEmptyCached(w) {
		row := make([]Cell, len(tbl.E))
		for i := range row {
			row[i] = DontCare
		}
		tbl.T[key] = row
		return
	}

	row := make([]Cell, len(tbl.E))
	for i, e := range tbl.E {
		row[i] = tbl.evaluate(w, e)
	}
	tbl.T[key] = row
}

func rowsEqual(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (tbl *Table) rowMatchesAnyS(w symword.SymWord) bool {
	row := tbl.T[w.String()]
	for _, s := range tbl.S {
		if rowsEqual(row, tbl.T[s.String()]) {
			return true
		}
	}
	return false
}

// Close runs close_table to its fixed point: for every s in S
// and a in A, if s·a's row matches no row currently in S, s·a is promoted
// into S. Reports whether anything was added.
func (tbl *Table) Close() bool {
	changedOverall := false
	for {
		added := false
		snapshot := append([]symword.SymWord(nil), tbl.S...)
		for _, s := range snapshot {
			for _, a := range tbl.A {
				ext := symword.Concat(s, symword.New(a))
				if tbl.containsInS(ext) {
					continue
				}
				tbl.ensureRow(ext)
				if !tbl.rowMatchesAnyS(ext) {
					tbl.S = append(tbl.S, ext)
					added = true
				}
			}
		}
		if !added {
			return changedOverall
		}
		changedOverall = true
	}
}

// appendColumn extends E with e and fills the new cell for every row
// currently in the table.
func (tbl *Table) appendColumn(e symword.SymWord) {
	tbl.E = append(tbl.E, e)
	for key, w := range tbl.TSymbolic {
		var cell Cell
		if tbl.inconsistentWords[key] {
			cell = DontCare
		} else {
			cell = tbl.evaluate(w, e)
		}
		tbl.T[key] = append(tbl.T[key], cell)
	}
}

// Consistent runs one witness-finding pass of consistent_table:
// finds s1, s2 with equal rows but some a in A on which s1·a and s2·a
// disagree, finds the witnessing column (or ε if a row is all don't-care),
// and appends a·witness to E. Reports whether a column was appended.
func (tbl *Table) Consistent() bool {
	for i, s1 := range tbl.S {
		for j := i + 1; j < len(tbl.S); j++ {
			s2 := tbl.S[j]
			if !rowsEqual(tbl.T[s1.String()], tbl.T[s2.String()]) {
				continue
			}
			for _, a := range tbl.A {
				e1 := symword.Concat(s1, symword.New(a))
				e2 := symword.Concat(s2, symword.New(a))
				tbl.ensureRow(e1)
				tbl.ensureRow(e2)
				row1, row2 := tbl.T[e1.String()], tbl.T[e2.String()]
				if rowsEqual(row1, row2) {
					continue
				}
				witness := symword.Epsilon()
				if !tbl.inconsistentWords[e1.String()] && !tbl.inconsistentWords[e2.String()] {
					// when the distinction is not due to one side's timed
					// language being empty, the witness is the first
					// disagreeing column.
					for k, e := range tbl.E {
						if row1[k] != row2[k] {
							witness = e
							break
						}
					}
				}
				tbl.appendColumn(symword.Concat(symword.New(a), witness))
				return true
			}
		}
	}
	return false
}

// MakeClosedAndConsistent alternates Close and Consistent until both hold.
func (tbl *Table) MakeClosedAndConsistent() {
	for {
		tbl.Close()
		if !tbl.Consistent() {
			return
		}
	}
}

// Hypothesis is a 3ERA synthesised from a closed, consistent table, together
// with the row-to-state mapping counterexample processing needs.
type Hypothesis struct {
	ERA           *era.ERA
	RowToState    map[string]int
	DontCareState int
}

// BuildHypothesis synthesises the 3-valued ERA hypothesis from tbl: one
// state per distinct row value (row values taken in order of
// first appearance in S, S sorted primarily by word length), the ε row's
// state initial, accepting if its first cell is Accept, don't-care if its
// first cell is DontCare, with every (row, a) routed to the class of
// T[row·a], or to the (unique) don't-care state when row·a has an empty
// timed language. A (row, a) whose row·a was never materialised gets no
// transition.
func (tbl *Table) BuildHypothesis() *Hypothesis {
	sorted := append([]symword.SymWord(nil), tbl.S...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Len() < sorted[j].Len() })

	type class struct {
		rowKey string
		repr   symword.SymWord
	}
	var classes []class
	rowKeyToClass := map[string]int{}
	for _, s := range sorted {
		rk := cellsKey(tbl.T[s.String()])
		if _, ok := rowKeyToClass[rk]; !ok {
			rowKeyToClass[rk] = len(classes)
			classes = append(classes, class{rowKey: rk, repr: s})
		}
	}

	a := era.New(tbl.Alphabet)
	stateOf := make([]int, len(classes))
	dontCare := -1
	for i, c := range classes {
		row := tbl.T[c.repr.String()]
		first := DontCare
		if len(row) > 0 {
			first = row[0]
		}
		idx := a.AddState(fmt.Sprintf("q%d", i), first == Accept)
		stateOf[i] = idx
		if first == DontCare {
			a.SetDontCare(idx, true)
			dontCare = idx
		}
		if c.repr.IsEpsilon() {
			a.SetInit(idx)
		}
	}

	rowToState := map[string]int{}
	for i, c := range classes {
		rowToState[c.repr.String()] = stateOf[i]
	}

	for i, c := range classes {
		for _, sym := range tbl.A {
			ext := symword.Concat(c.repr, symword.New(sym))
			extKey := ext.String()
			var tgt int
			switch {
			case tbl.inconsistentWords[extKey]:
				if dontCare < 0 {
					continue
				}
				tgt = dontCare
			case tbl.hasRow(extKey):
				classIdx, ok := rowKeyToClass[cellsKey(tbl.T[extKey])]
				if !ok {
					continue
				}
				tgt = stateOf[classIdx]
			default:
				continue
			}
			a.AddTransition(stateOf[i], tgt, sym.Event, sym.Guard)
		}
	}

	if dontCare >= 0 {
		for _, sym := range tbl.A {
			a.AddTransition(dontCare, dontCare, sym.Event, sym.Guard)
		}
	}

	return &Hypothesis{ERA: a, RowToState: rowToState, DontCareState: dontCare}
}

// AddCounterexampleAllPrefixes implements add_cex(add_all_prefixes=True):
// every non-ε prefix of cex is added to S if absent, its row filled.
func (tbl *Table) AddCounterexampleAllPrefixes(cex symword.SymWord) {
	if cex.IsEpsilon() {
		return
	}
	syms := cex.Syms()
	for k := 1; k <= len(syms); k++ {
		prefix := symword.New(syms[:k]...)
		if tbl.containsInS(prefix) {
			continue
		}
		tbl.ensureRow(prefix)
		tbl.S = append(tbl.S, prefix)
	}
}

// accessWord returns the S-word whose row is associated with hyp state idx.
func (tbl *Table) accessWord(hyp *Hypothesis, idx int) symword.SymWord {
	for key, st := range hyp.RowToState {
		if st == idx {
			return tbl.TSymbolic[key]
		}
	}
	return symword.Epsilon()
}

func (tbl *Table) sulLabel(w symword.SymWord) Cell {
	state, ok := tbl.sulStateAfter(w)
	if !ok {
		return Reject
	}
	if tbl.SUL.IsAccepting(state) {
		return Accept
	}
	return Reject
}

// AddCounterexampleRivestSchapire implements add_cex(add_all_prefixes=False):
// binary search over the split point of cex for the longest
// prefix whose hypothesis access word, concatenated with the remaining
// suffix, still agrees with the SUL's verdict on cex, appending the
// distinguishing suffix to E. sulAccepts is the SUL's verdict on cex, known
// to the driver from which inclusion direction produced it. A probe word
// with an empty timed language counts as disagreement. A suffix already
// present in E is not appended again.
func (tbl *Table) AddCounterexampleRivestSchapire(cex symword.SymWord, hyp *Hypothesis, sulAccepts bool) {
	if cex.IsEpsilon() {
		return
	}
	syms := cex.Syms()
	n := len(syms)

	cexLabel := Reject
	if sulAccepts {
		cexLabel = Accept
	}

	accessAt := func(pos int) symword.SymWord {
		prefix := symword.New(syms[:pos]...)
		state, ok := hyp.ERA.ReadWord(hyp.ERA.InitIndex(), prefix)
		if !ok {
			return prefix
		}
		return tbl.accessWord(hyp, state)
	}

	agrees := func(pos int) bool {
		w := symword.Concat(accessAt(pos), symword.New(syms[pos:]...))
		return !w.IsEmpty() && tbl.sulLabel(w) == cexLabel
	}

	lo, hi := 0, n
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if agrees(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}

	newE := symword.New(syms[hi:]...)
	for _, e := range tbl.E {
		if e.Equal(newE) {
			return
		}
	}
	tbl.appendColumn(newE)
}

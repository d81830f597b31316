// Package learner implements the outer active-learning loop:
// close/consistent, hypothesis synthesis, completeness against the SUL,
// minimisation, and soundness, until a DERA equivalent to the SUL is
// produced.
package learner

import (
	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/oracle"
	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/minimize"
	"github.com/halvard/eralearn/pkg/obstable"
	"github.com/halvard/eralearn/pkg/symword"
)

// Stats counts the queries and counterexample strategies a run used,
// injected rather than kept as process-wide globals.
type Stats struct {
	MembershipQueries int
	InclusionChecks   int
	EquivalenceChecks int
	RivestSchapireCEs int
	AllPrefixesCEs    int
}

// Driver runs the outer learning loop for one SUL.
type Driver struct {
	Table  *obstable.Table
	SUL    *era.ERA
	Oracle oracle.Oracle
	Stats  Stats

	// OnIteration, when set, is invoked after each close/consistent pass with
	// the 1-based iteration number, before the iteration's equivalence
	// checks. The CLI driver uses it to checkpoint the table.
	OnIteration func(iteration int)
}

// New builds a driver over sul at region bound m, using a BFS reachability
// oracle by default.
func New(sul *era.ERA, m int) *Driver {
	d := &Driver{
		Table:  obstable.New(sul, m),
		SUL:    sul,
		Oracle: oracle.BFSOracle{},
	}
	d.Table.OnMembershipQuery = func() { d.Stats.MembershipQueries++ }
	return d
}

// inclusionCounterexample asks whether sub's language is contained in sup's
// (both deterministic), returning a witness word accepted by sub but not by
// sup when it is not. The check runs over the product of sub with sup's
// complement; words that die on a missing transition of sup are treated as
// rejected by it.
func (d *Driver) inclusionCounterexample(sub, sup *era.ERA) (symword.SymWord, bool, error) {
	d.Stats.InclusionChecks++
	product := era.Product(sub, era.Complement(sup))
	w, found, err := d.Oracle.Reachable(product, true)
	if err != nil {
		return symword.SymWord{}, false, eraerr.OracleFailure(err, "learner: reachability query failed")
	}
	return w, found, nil
}

// Learn runs the outer loop to completion and returns the minimal DERA
// equivalent to the SUL. It fails only when the reachability
// oracle does.
func (d *Driver) Learn() (*era.ERA, error) {
	iteration := 0
	for {
		iteration++
		d.Table.MakeClosedAndConsistent()
		if d.OnIteration != nil {
			d.OnIteration(iteration)
		}
		hyp := d.Table.BuildHypothesis()
		d.Stats.EquivalenceChecks++

		// completeness: the hypothesis must not accept outside the SUL, and
		// must capture every behaviour of the SUL excepting don't-cares.
		if cex, ok, err := d.inclusionCounterexample(hyp.ERA, d.SUL); err != nil {
			return nil, err
		} else if ok {
			d.Stats.RivestSchapireCEs++
			d.Table.AddCounterexampleRivestSchapire(cex, hyp, false)
			continue
		}
		hDC := hyp.ERA.WithDontCareAccepting()
		if cex, ok, err := d.inclusionCounterexample(d.SUL, hDC); err != nil {
			return nil, err
		} else if ok {
			d.Stats.RivestSchapireCEs++
			d.Table.AddCounterexampleRivestSchapire(cex, hyp, true)
			continue
		}

		minimized := minimize.Minimize(hyp.ERA)

		// soundness: two-way inclusion of the minimised DERA and the SUL.
		if cex, ok, err := d.inclusionCounterexample(d.SUL, minimized); err != nil {
			return nil, err
		} else if ok {
			d.Stats.AllPrefixesCEs++
			d.Table.AddCounterexampleAllPrefixes(cex)
			continue
		}
		if cex, ok, err := d.inclusionCounterexample(minimized, d.SUL); err != nil {
			return nil, err
		} else if ok {
			d.Stats.AllPrefixesCEs++
			d.Table.AddCounterexampleAllPrefixes(cex)
			continue
		}

		minimized.RemoveSinks()
		return minimized, nil
	}
}

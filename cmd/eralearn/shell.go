package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/era/accept"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
	"github.com/halvard/eralearn/pkg/learner"
	"github.com/halvard/eralearn/pkg/symword"
	"github.com/halvard/eralearn/statsrv"
)

const shellHelp = `Commands:
  check WORD   decide whether the learned DERA accepts some concretisation of
               WORD. WORD is a space-separated list of symbols, each either an
               event name or NAME[GUARD], e.g.: check a[a<=1] b a[a==2&&b>0]
  show         print the learned DERA
  table        print the final observation table
  stats        print the run's query counters
  quit         exit the shell`

// runShell reads query commands with readline until EOF or quit, answering
// them against the learned DERA.
func runShell(w io.Writer, drv *learner.Driver, dera *era.ERA) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "eralearn> ",
	})
	if err != nil {
		return fmt.Errorf("create readline config: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			// readline returns io.EOF on ctrl-D and ErrInterrupt on ctrl-C;
			// both end the shell.
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(w, shellHelp)
		case "show":
			fmt.Fprint(w, dera.String())
		case "table":
			fmt.Fprintln(w, statsrv.RenderTableText(drv.Table))
		case "stats":
			fmt.Fprintf(w, "MQ=%d IQ=%d EQ=%d cex(RS)=%d cex(prefixes)=%d\n",
				drv.Stats.MembershipQueries, drv.Stats.InclusionChecks,
				drv.Stats.EquivalenceChecks, drv.Stats.RivestSchapireCEs,
				drv.Stats.AllPrefixesCEs)
		case "check":
			word, err := parseShellWord(dera.Alphabet, rest)
			if err != nil {
				fmt.Fprintf(w, "ERROR: %s\n", eraerr.Summary(err))
				continue
			}
			fmt.Fprintf(w, "%s: %v\n", word, accept.Check(dera, word))
		default:
			fmt.Fprintf(w, "Unknown command %q; try \"help\".\n", cmd)
		}
	}
}

// parseShellWord parses the shell's word syntax: whitespace-separated symbols,
// each an event name optionally followed by a bracketed guard. No symbols
// means the empty word.
func parseShellWord(alph *event.Alphabet, s string) (symword.SymWord, error) {
	var syms []symword.SymEvent
	for _, tok := range strings.Fields(s) {
		name, rest, found := strings.Cut(tok, "[")
		g := guard.True()
		if found {
			if !strings.HasSuffix(rest, "]") {
				return symword.SymWord{}, eraerr.InvalidInput("symbol %q is missing its closing bracket", tok)
			}
			var err error
			g, err = guard.Parse(alph, strings.TrimSuffix(rest, "]"))
			if err != nil {
				return symword.SymWord{}, err
			}
		}
		ev := event.New(name)
		if !alph.Contains(ev) {
			return symword.SymWord{}, eraerr.InvalidInput("event %q is not in the alphabet", name)
		}
		syms = append(syms, symword.SymEvent{Event: ev, Guard: g})
	}
	return symword.New(syms...), nil
}

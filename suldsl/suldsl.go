// Package suldsl parses the line-oriented system-under-learning format:
// events, locations, and transitions declared one per line,
// colon-separated.
package suldsl

import (
	"bufio"
	"io"
	"strings"

	"github.com/halvard/eralearn/internal/eraerr"
	"github.com/halvard/eralearn/pkg/era"
	"github.com/halvard/eralearn/pkg/event"
	"github.com/halvard/eralearn/pkg/guard"
)

// Parse reads a SUL description from r and builds the corresponding ERA.
// Lines are processed in three passes so that transitions, which reference
// events and locations, can validate against the fully-declared alphabet
// and state set regardless of declaration order.
func Parse(r io.Reader) (*era.ERA, error) {
	var eventLines, locationLines, transitionLines []string

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "event:"):
			eventLines = append(eventLines, line)
		case strings.HasPrefix(line, "location:"):
			locationLines = append(locationLines, line)
		case strings.HasPrefix(line, "transition:"):
			transitionLines = append(transitionLines, line)
		default:
			return nil, eraerr.InvalidInput("suldsl: line %d: unrecognised keyword in %q", lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eraerr.WrapInvalidInput(err, "suldsl: failed reading input")
	}

	var events []event.Event
	active := map[string]bool{}
	for _, line := range eventLines {
		name, flag, err := parseEventLine(line)
		if err != nil {
			return nil, err
		}
		events = append(events, event.New(name))
		if flag == "active" {
			active[name] = true
		} else if flag != "" {
			return nil, eraerr.InvalidInput("suldsl: unknown event flag %q in %q", flag, line)
		}
	}
	alph := event.NewAlphabet(events...)
	for name := range active {
		alph.MarkActive(event.New(name))
	}

	a := era.New(alph)
	stateIndex := map[string]int{}
	sawInit := false
	for _, line := range locationLines {
		name, flags, err := parseLocationLine(line)
		if err != nil {
			return nil, err
		}
		accepting, initial := false, false
		for _, f := range flags {
			switch f {
			case "initial":
				initial = true
			case "accepting":
				accepting = true
			case "":
				// no flags
			default:
				return nil, eraerr.InvalidInput("suldsl: unknown location flag %q in %q", f, line)
			}
		}
		idx := a.AddState(name, accepting)
		stateIndex[name] = idx
		if initial {
			if sawInit {
				return nil, eraerr.InvalidInput("suldsl: more than one initial location declared (%q)", line)
			}
			a.SetInit(idx)
			sawInit = true
		}
	}
	if !sawInit {
		return nil, eraerr.InvalidInput("suldsl: no initial location declared")
	}

	for _, line := range transitionLines {
		src, tgt, evName, guardStr, err := parseTransitionLine(line)
		if err != nil {
			return nil, err
		}
		srcIdx, ok := stateIndex[src]
		if !ok {
			return nil, eraerr.InvalidInput("suldsl: transition references undeclared location %q in %q", src, line)
		}
		tgtIdx, ok := stateIndex[tgt]
		if !ok {
			return nil, eraerr.InvalidInput("suldsl: transition references undeclared location %q in %q", tgt, line)
		}
		ev := event.New(evName)
		if !alph.Contains(ev) {
			return nil, eraerr.InvalidInput("suldsl: transition references undeclared event %q in %q", evName, line)
		}
		g, err := guard.Parse(alph, guardStr)
		if err != nil {
			return nil, err
		}
		a.AddTransition(srcIdx, tgtIdx, ev, g)
	}

	return a, nil
}

func parseEventLine(line string) (name, flag string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(line, "event:"), "{", 2)
	name = strings.TrimSpace(parts[0])
	if name == "" {
		return "", "", eraerr.InvalidInput("suldsl: empty event name in %q", line)
	}
	if len(parts) == 2 {
		flag = strings.TrimSpace(strings.TrimSuffix(parts[1], "}"))
	}
	return name, flag, nil
}

func parseLocationLine(line string) (name string, flags []string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(line, "location:"), "{", 2)
	name = strings.TrimSpace(parts[0])
	if name == "" {
		return "", nil, eraerr.InvalidInput("suldsl: empty location name in %q", line)
	}
	if len(parts) == 2 {
		body := strings.TrimSpace(strings.TrimSuffix(parts[1], "}"))
		if body != "" {
			for _, f := range strings.Split(body, ",") {
				flags = append(flags, strings.TrimSpace(f))
			}
		}
	}
	return name, flags, nil
}

func parseTransitionLine(line string) (src, tgt, evName, guardStr string, err error) {
	rest := strings.TrimPrefix(line, "transition:")
	fields := strings.SplitN(rest, ":", 4)
	if len(fields) != 4 {
		return "", "", "", "", eraerr.InvalidInput("suldsl: transition line needs 4 colon-separated fields: %q", line)
	}
	src = strings.TrimSpace(fields[0])
	tgt = strings.TrimSpace(fields[1])
	evName = strings.TrimSpace(fields[2])
	guardStr = strings.TrimSpace(fields[3])
	return src, tgt, evName, guardStr, nil
}

// Package eraerr defines the error categories used across the learner: input
// parsed from a textual SUL/guard description, contract violations detected
// by the core data model, and fatal failures reported by external
// collaborators such as the reachability oracle.
package eraerr

import "fmt"

// taggedError is an error with a short operator-facing summary and an
// optional wrapped cause.
type taggedError struct {
	msg  string
	kind string
	wrap error
}

func (e *taggedError) Error() string {
	return e.msg
}

// Summary gives the short, category-labeled description of the error,
// suitable for a CLI diagnostic line.
func (e *taggedError) Summary() string {
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *taggedError) Unwrap() error {
	return e.wrap
}

// InvalidInput reports a malformed guard, location, or transition line, an
// unknown comparison operator, or an event name absent from the declared
// alphabet. It always fails at parse time.
func InvalidInput(format string, a ...interface{}) error {
	return &taggedError{msg: fmt.Sprintf(format, a...), kind: "invalid input"}
}

// WrapInvalidInput wraps a lower-level error (e.g. strconv.Atoi on a bound)
// as an InvalidInput diagnostic.
func WrapInvalidInput(wrapped error, format string, a ...interface{}) error {
	return &taggedError{msg: fmt.Sprintf(format, a...), kind: "invalid input", wrap: wrapped}
}

// Contract reports a programming error: an operation invoked on a variant
// that does not support it (e.g. Bound() of a True or Conj guard),
// complementing a non-deterministic ERA, or violating the disjoint-guard
// discipline when adding a transition.
// Callers that hit this should treat it as a bug, not a recoverable
// condition.
func Contract(format string, a ...interface{}) error {
	return &taggedError{msg: fmt.Sprintf(format, a...), kind: "contract violation"}
}

// OracleFailure reports that the external reachability oracle could not be
// run or returned output the driver could not parse. The learner cannot
// continue without an oracle, so this is always fatal.
func OracleFailure(wrapped error, format string, a ...interface{}) error {
	return &taggedError{msg: fmt.Sprintf(format, a...), kind: "oracle failure", wrap: wrapped}
}

// Summary returns the category-labeled message for any error produced by
// this package, or err.Error() for anything else.
func Summary(err error) string {
	if tagged, ok := err.(*taggedError); ok {
		return tagged.Summary()
	}
	return err.Error()
}

package mirror

import (
	"fmt"
)

// Action is one pending or performed regeneration, with paths relative to
// the source and output roots.
type Action struct {
	Source string
	Target string
}

// FileError records a failed conversion of a single file.
type FileError struct {
	Source string
	Target string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.Source, e.Target, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Result accumulates what a traversal did. It is returned by value and
// merged by callers; no counters are shared between runs.
type Result struct {
	// Count is the number of copy or convert actions performed
	// (or, in dry-run mode, that would be performed).
	Count int

	// Outputs lists every target considered, stale or not.
	Outputs []string

	// Actions lists the stale source/target pairs acted on.
	Actions []Action

	// Failures lists per-file conversion errors.
	Failures []*FileError
}

// Add merges other into r.
func (r *Result) Add(other Result) {
	r.Count += other.Count
	r.Outputs = append(r.Outputs, other.Outputs...)
	r.Actions = append(r.Actions, other.Actions...)
	r.Failures = append(r.Failures, other.Failures...)
}

// Failed reports whether any per-file conversion failed.
func (r Result) Failed() bool {
	return len(r.Failures) > 0
}

// Package compare judges whether an executor's result matches the
// expected values recorded for a test case. It canonicalizes raw output
// values under path-normalization rules and resolves each case to one
// verdict from the outcome lattice.
package compare

// Verdict is the terminal state of one (test case, executor run) pair.
type Verdict string

const (
	Pass    Verdict = "pass"
	Warn    Verdict = "warn"
	Fail    Verdict = "fail"
	Invalid Verdict = "invalid"
	Ignore  Verdict = "ignore"
)

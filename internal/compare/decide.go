package compare

import (
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/openwdl/conformance/internal/registry"
)

// Flags carries the run-level switches that influence verdicts.
type Flags struct {
	// NoWarn downgrades a failed check of an expected-failure case to a
	// warning instead of a failure.
	NoWarn bool

	// DeprecatedOptional downgrades failed checks of cases tagged
	// "deprecated" to warnings.
	DeprecatedOptional bool

	// UnorderedLists compares lists order-insensitively. Directory
	// expansions are always emitted sorted, but spec authors do not
	// always write expected lists in sorted order.
	UnorderedLists bool
}

// RunOutcome is an executor's raw process outcome for one case.
type RunOutcome struct {
	// ReturnCode is the process return code.
	ReturnCode int

	// Outputs holds the parsed structured outputs, when parsing worked.
	Outputs map[string]any

	// ParseErr records a structured-output parse failure. A well-behaved
	// executor always emits well-formed output on success, so this is a
	// hard per-case failure, not an invalid result.
	ParseErr error

	// Raw is the unparsed output text, kept for diagnostics.
	Raw string
}

// CheckOutcome is the result of an executor's static validation.
type CheckOutcome struct {
	OK         bool
	Diagnostic string
}

// Mismatch records one output key disagreement after normalization.
// Expected is nil when the executor produced a key the case does not
// declare.
type Mismatch struct {
	Key      string `json:"key"`
	Actual   any    `json:"actual"`
	Expected any    `json:"expected"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %v != %v", m.Key, m.Actual, m.Expected)
}

// Result is one case's resolved verdict plus diagnostic context.
type Result struct {
	Path       string     `json:"path"`
	Verdict    Verdict    `json:"verdict"`
	Reason     string     `json:"reason,omitempty"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Evaluate resolves one test case against an executor's run outcome.
// Decision order, first matching rule wins:
//
//  1. ignored priority
//  2. expected failure: pass iff the run failed
//  3. return code outside the accepted set
//  4. unexpected abnormal exit
//  5. structured output parse failure
//  6. per-key comparison under normalization; mismatches accumulate
//     across all keys before the verdict is decided
//
// Evaluate never mutates the test case.
func Evaluate(tc registry.TestCase, out RunOutcome, norm *Normalizer, flags Flags) Result {
	res := Result{Path: tc.Path}

	if tc.Priority == registry.PriorityIgnore {
		res.Verdict = Ignore
		return res
	}

	failed := out.ReturnCode != 0
	if tc.Fail {
		if failed {
			res.Verdict = Pass
			return res
		}
		res.Verdict = Fail
		res.Reason = "expected to fail but passed"
		return res
	}

	if !tc.ReturnCodes.IsWildcard() && !tc.ReturnCodes.Matches(out.ReturnCode) {
		res.Verdict = Fail
		res.Reason = fmt.Sprintf("return code %d not among expected %s", out.ReturnCode, tc.ReturnCodes)
		return res
	}
	if failed {
		res.Verdict = Fail
		res.Reason = "failed unexpectedly"
		return res
	}
	if out.ParseErr != nil {
		res.Verdict = Fail
		res.Reason = fmt.Sprintf("invalid structured output: %v", out.ParseErr)
		return res
	}

	// Iterate produced keys in sorted order so mismatch accumulation is
	// deterministic.
	keys := make([]string, 0, len(out.Outputs))
	for k := range out.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := equalOptions(flags)
	for _, key := range keys {
		if tc.Excludes(key) {
			continue
		}
		actual := norm.Normalize(out.Outputs[key])
		expected, ok := tc.Output[key]
		if !ok {
			res.Mismatches = append(res.Mismatches, Mismatch{Key: key, Actual: actual})
			continue
		}
		if !cmp.Equal(actual, expected, opts...) {
			res.Mismatches = append(res.Mismatches, Mismatch{Key: key, Actual: actual, Expected: expected})
		}
	}

	if len(res.Mismatches) > 0 {
		res.Verdict = Fail
		res.Reason = fmt.Sprintf("%d output mismatch(es)", len(res.Mismatches))
		return res
	}
	res.Verdict = Pass
	return res
}

// EvaluateCheck resolves the syntax-only check path. Expected-failure
// cases and deprecated constructs can be downgraded to warnings so a
// strict conformance pass tolerates known-deprecated-but-valid examples.
func EvaluateCheck(tc registry.TestCase, out CheckOutcome, flags Flags) Result {
	res := Result{Path: tc.Path}

	if tc.Priority == registry.PriorityIgnore {
		res.Verdict = Ignore
		return res
	}
	if out.OK {
		res.Verdict = Pass
		return res
	}
	if tc.Fail && flags.NoWarn {
		res.Verdict = Warn
		res.Reason = "check failed for expected-failure case"
		return res
	}
	if flags.DeprecatedOptional && tc.HasTag("deprecated") {
		res.Verdict = Warn
		res.Reason = "check failed for deprecated construct"
		return res
	}
	res.Verdict = Fail
	res.Reason = out.Diagnostic
	return res
}

func equalOptions(flags Flags) []cmp.Option {
	if !flags.UnorderedLists {
		return nil
	}
	return []cmp.Option{
		cmpopts.SortSlices(func(a, b any) bool {
			return fmt.Sprint(a) < fmt.Sprint(b)
		}),
	}
}

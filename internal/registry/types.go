// Package registry defines the canonical, engine-agnostic test case record
// and the ordered registry that is serialized to test_config.json. The
// serialized form is the sole contract between the extraction phase and the
// comparison phase.
package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// CaseType identifies which entry point a test case exercises.
type CaseType string

const (
	TypeWorkflow CaseType = "workflow"
	TypeTask     CaseType = "task"
)

// Priority governs whether a failing case is counted at all.
// The set is extensible; only "ignore" has harness-defined meaning.
type Priority string

const (
	PriorityRequired Priority = "required"
	PriorityIgnore   Priority = "ignore"
)

// TestCase is one canonical test record extracted from the specification.
// Field order matters: it defines the serialized field order of the
// registry contract.
type TestCase struct {
	// ID is the stable identifier derived from the example's target name.
	ID string `json:"id"`

	// Path is where the extracted program text was materialized. It is
	// the registry key and the argument passed to an executor.
	Path string `json:"path"`

	// Type selects the entry point kind (task or workflow).
	Type CaseType `json:"type"`

	// Target is the entry-point name inside the program. Defaults to ID.
	Target string `json:"target"`

	// Priority controls whether the case is evaluated at all.
	Priority Priority `json:"priority"`

	// Fail marks a case that is expected to terminate abnormally.
	Fail bool `json:"fail"`

	// ExcludeOutput lists output names skipped during comparison.
	ExcludeOutput []string `json:"exclude_output"`

	// ReturnCodes is the set of acceptable return codes, or the wildcard.
	ReturnCodes ReturnCodes `json:"returnCodes"`

	// Dependencies and Tags are auxiliary selection sets, not interpreted
	// by the comparison core.
	Dependencies []string `json:"dependencies"`
	Tags         []string `json:"tags"`

	// Input maps input name to literal JSON value.
	Input map[string]any `json:"input"`

	// Output maps output name to the expected literal JSON value.
	Output map[string]any `json:"output"`
}

// HasTag reports whether the case carries the given tag.
func (tc TestCase) HasTag(tag string) bool {
	for _, t := range tc.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Excludes reports whether an output key is excluded from comparison.
func (tc TestCase) Excludes(key string) bool {
	for _, k := range tc.ExcludeOutput {
		if k == key {
			return true
		}
	}
	return false
}

// ReturnCodes is either the wildcard (any code is acceptable) or an
// ordered set of acceptable integer return codes. The JSON form is the
// string "*" for the wildcard, otherwise an array of integers.
type ReturnCodes struct {
	wildcard bool
	codes    []int
}

// AnyReturnCode is the wildcard: every return code is acceptable.
func AnyReturnCode() ReturnCodes {
	return ReturnCodes{wildcard: true}
}

// ReturnCodeList builds an ordered return-code set.
func ReturnCodeList(codes ...int) ReturnCodes {
	return ReturnCodes{codes: append([]int(nil), codes...)}
}

// IsWildcard reports whether any return code is acceptable.
func (r ReturnCodes) IsWildcard() bool {
	return r.wildcard
}

// Codes returns the acceptable codes (nil for the wildcard).
func (r ReturnCodes) Codes() []int {
	return append([]int(nil), r.codes...)
}

// Matches reports whether the given return code is acceptable.
func (r ReturnCodes) Matches(code int) bool {
	if r.wildcard {
		return true
	}
	for _, c := range r.codes {
		if c == code {
			return true
		}
	}
	return false
}

func (r ReturnCodes) String() string {
	if r.wildcard {
		return "*"
	}
	return fmt.Sprint(r.codes)
}

// MarshalJSON emits "*" for the wildcard, otherwise an integer array.
func (r ReturnCodes) MarshalJSON() ([]byte, error) {
	if r.wildcard {
		return json.Marshal("*")
	}
	codes := r.codes
	if codes == nil {
		codes = []int{}
	}
	return json.Marshal(codes)
}

// UnmarshalJSON accepts the canonical forms plus the scalar shorthands
// promoted during extraction (a single integer or numeric string).
func (r *ReturnCodes) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	rc, err := ReturnCodesFromValue(v)
	if err != nil {
		return err
	}
	*r = rc
	return nil
}

// ReturnCodesFromValue normalizes a decoded JSON value to a ReturnCodes.
// A bare scalar is promoted to a one-element set; the string "*" is the
// wildcard. Any other shape is a type error.
func ReturnCodesFromValue(v any) (ReturnCodes, error) {
	switch val := v.(type) {
	case string:
		if val == "*" {
			return AnyReturnCode(), nil
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return ReturnCodes{}, fmt.Errorf("return code %q is not an integer", val)
		}
		return ReturnCodeList(n), nil
	case float64:
		n, err := intFromFloat(val)
		if err != nil {
			return ReturnCodes{}, err
		}
		return ReturnCodeList(n), nil
	case []any:
		codes := make([]int, 0, len(val))
		for i, elem := range val {
			switch e := elem.(type) {
			case float64:
				n, err := intFromFloat(e)
				if err != nil {
					return ReturnCodes{}, fmt.Errorf("returnCodes[%d]: %w", i, err)
				}
				codes = append(codes, n)
			case string:
				n, err := strconv.Atoi(e)
				if err != nil {
					return ReturnCodes{}, fmt.Errorf("returnCodes[%d]: %q is not an integer", i, e)
				}
				codes = append(codes, n)
			default:
				return ReturnCodes{}, fmt.Errorf("returnCodes[%d]: unsupported type %T", i, elem)
			}
		}
		return ReturnCodes{codes: codes}, nil
	default:
		return ReturnCodes{}, fmt.Errorf("returnCodes: unsupported type %T", v)
	}
}

func intFromFloat(f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("return code %v is not an integer", f)
	}
	return int(f), nil
}

// StringListFromValue normalizes a decoded JSON value to a string list.
// A bare string is promoted to a one-element list. Any other shape is a
// type error.
func StringListFromValue(field string, v any) ([]string, error) {
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", field, i, elem)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected string or list of strings, got %T", field, v)
	}
}

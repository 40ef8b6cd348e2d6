// Package executor defines the collaborator interface to an execution
// engine and a generic command-line adapter driven by a YAML engine
// definition. The harness core depends only on this shape, never on a
// concrete engine's command line.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/openwdl/conformance/internal/compare"
	"github.com/openwdl/conformance/internal/registry"
)

// Executor statically checks and runs one test case. An error return
// indicates a broken or missing engine and is fatal to the whole run;
// per-case abnormal return codes are reported through the outcome and
// routed through the decision lattice instead.
type Executor interface {
	// Name identifies the engine.
	Name() string

	// PathPolicy is the adapter-supplied normalization policy: whether
	// this engine stages outputs inside or outside the declared output
	// root decides the file path reduction.
	PathPolicy() compare.PathPolicy

	// Check statically validates the case's program.
	Check(ctx context.Context, tc registry.TestCase, strict bool) (compare.CheckOutcome, error)

	// Run executes the case with its inputs, staging outputs under
	// outputBase, and reports the raw process outcome.
	Run(ctx context.Context, tc registry.TestCase, outputBase string) (compare.RunOutcome, error)
}

// ExecutionError indicates the engine itself could not be used: binary
// not found, not executable, or a process that could not be started.
type ExecutionError struct {
	Engine string
	Binary string
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: %s: %v", e.Engine, e.Reason, e.Err)
	}
	return fmt.Sprintf("engine %s: %s", e.Engine, e.Reason)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError reports whether err is an engine-level failure.
// Uses errors.As to handle wrapped errors.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

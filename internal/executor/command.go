package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/openwdl/conformance/internal/compare"
	"github.com/openwdl/conformance/internal/registry"
)

// CommandExecutor runs an engine through its command line per an
// EngineDef. It implements Executor.
type CommandExecutor struct {
	name   string
	def    EngineDef
	binary string
}

// NewCommandExecutor resolves the engine binary and builds the adapter.
// A missing or non-executable binary is an ExecutionError.
func NewCommandExecutor(name string, def EngineDef) (*CommandExecutor, error) {
	binary, err := exec.LookPath(def.Binary)
	if err != nil {
		return nil, &ExecutionError{
			Engine: name,
			Binary: def.Binary,
			Reason: fmt.Sprintf("cannot find %s on system path", def.Binary),
			Err:    err,
		}
	}
	return &CommandExecutor{name: name, def: def, binary: binary}, nil
}

func (c *CommandExecutor) Name() string {
	return c.name
}

func (c *CommandExecutor) PathPolicy() compare.PathPolicy {
	return c.def.PathPolicy
}

// Check runs the engine's static validation command.
func (c *CommandExecutor) Check(ctx context.Context, tc registry.TestCase, strict bool) (compare.CheckOutcome, error) {
	vars := map[string]string{
		"wdl":    tc.Path,
		"target": tc.Target,
		"id":     tc.ID,
	}
	args := expandArgs(c.def.CheckArgs, vars)
	if strict && c.def.StrictArg != "" {
		args = append(args, c.def.StrictArg)
	}

	out, rc, err := c.exec(ctx, args)
	if err != nil {
		return compare.CheckOutcome{}, err
	}
	return compare.CheckOutcome{OK: rc == 0, Diagnostic: string(out)}, nil
}

// Run executes the case, staging outputs under outputBase. The case's
// inputs are written to a JSON file inside outputBase so each case keeps
// a private working area.
func (c *CommandExecutor) Run(ctx context.Context, tc registry.TestCase, outputBase string) (compare.RunOutcome, error) {
	if err := os.MkdirAll(outputBase, 0755); err != nil {
		return compare.RunOutcome{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	inputsPath := filepath.Join(outputBase, tc.ID+".inputs.json")
	inputs, err := json.Marshal(tc.Input)
	if err != nil {
		return compare.RunOutcome{}, fmt.Errorf("failed to marshal inputs: %w", err)
	}
	if err := os.WriteFile(inputsPath, inputs, 0644); err != nil {
		return compare.RunOutcome{}, fmt.Errorf("failed to write inputs file: %w", err)
	}

	vars := map[string]string{
		"wdl":    tc.Path,
		"inputs": inputsPath,
		"outdir": outputBase,
		"target": tc.Target,
		"id":     tc.ID,
	}
	args := expandArgs(c.def.RunArgs, vars)
	if tc.Type == registry.TypeTask {
		args = append(args, expandArgs(c.def.TaskArgs, vars)...)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	rc := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return compare.RunOutcome{}, &ExecutionError{
				Engine: c.name,
				Binary: c.binary,
				Reason: "failed to start engine process",
				Err:    err,
			}
		}
		rc = exitErr.ExitCode()
	}

	outcome := compare.RunOutcome{
		ReturnCode: rc,
		Raw:        stdout.String() + stderr.String(),
	}
	if rc == 0 {
		outcome.Outputs, outcome.ParseErr = c.parseOutputs(stdout.Bytes(), vars)
	}
	return outcome, nil
}

// exec runs the binary with combined output, mapping a start failure to
// an ExecutionError and a non-zero exit to a return code.
func (c *CommandExecutor) exec(ctx context.Context, args []string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), nil
	}
	return nil, 0, &ExecutionError{
		Engine: c.name,
		Binary: c.binary,
		Reason: "failed to start engine process",
		Err:    err,
	}
}

// parseOutputs extracts the structured output mapping per the engine
// definition. A parse failure is reported through the outcome, not as an
// engine-level error.
func (c *CommandExecutor) parseOutputs(stdout []byte, vars map[string]string) (map[string]any, error) {
	raw := stdout
	if c.def.OutputsFrom == OutputsFromFile {
		path := expand(c.def.OutputsFile, vars)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read outputs file: %w", err)
		}
		raw = data
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("output is not a JSON object: %w", err)
	}
	if c.def.OutputsKey == "" {
		return doc, nil
	}
	inner, ok := doc[c.def.OutputsKey]
	if !ok {
		// Engines omit the envelope when a workflow declares no outputs.
		return map[string]any{}, nil
	}
	outputs, ok := inner.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("output key %q is not an object", c.def.OutputsKey)
	}
	return outputs, nil
}

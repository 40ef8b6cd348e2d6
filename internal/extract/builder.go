package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openwdl/conformance/internal/registry"
)

// Builder turns parsed examples into canonical test case records. It
// materializes each program source under the output directory and applies
// the defaulting rules: an explicit test config value wins, otherwise a
// default computed from the filename markers.
type Builder struct {
	outDir string
	schema *configSchema
}

// NewBuilder creates a builder writing program sources under outDir,
// creating the directory if needed.
func NewBuilder(outDir string) (*Builder, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	schema, err := newConfigSchema()
	if err != nil {
		return nil, err
	}
	return &Builder{outDir: outDir, schema: schema}, nil
}

// Build writes the example's program source and produces its test case.
// A source path that already exists is a DuplicateCaseError: two examples
// in one document must never share a title.
func (b *Builder) Build(ex *Example) (*registry.TestCase, error) {
	path := filepath.Join(b.outDir, ex.Title)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &Error{
				Code:    ErrCodeDuplicateCase,
				Message: fmt.Sprintf("test file already exists: %s", path),
				Title:   ex.Title,
				Line:    ex.Line,
			}
		}
		return nil, fmt.Errorf("failed to create test file %s: %w", path, err)
	}
	if _, err := f.WriteString(ex.Source + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write test file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write test file %s: %w", path, err)
	}

	cfg, err := b.parseConfig(ex)
	if err != nil {
		return nil, err
	}

	tc := &registry.TestCase{
		ID:   ex.Target,
		Path: path,
	}

	if err := b.applyDefaults(tc, ex, cfg); err != nil {
		return nil, err
	}
	return tc, nil
}

// parseConfig validates and decodes the optional test config section.
func (b *Builder) parseConfig(ex *Example) (map[string]any, error) {
	if ex.Config == "" {
		return map[string]any{}, nil
	}
	if err := b.schema.validate(ex.Config); err != nil {
		return nil, &Error{
			Code:    ErrCodeSchema,
			Message: "invalid test config",
			Title:   ex.Title,
			Line:    ex.Line,
			Err:     err,
		}
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(ex.Config), &cfg); err != nil {
		return nil, &Error{
			Code:    ErrCodeSchema,
			Message: "test config is not a JSON object",
			Title:   ex.Title,
			Line:    ex.Line,
			Err:     err,
		}
	}
	return cfg, nil
}

func (b *Builder) applyDefaults(tc *registry.TestCase, ex *Example, cfg map[string]any) error {
	schemaErr := func(msg string, err error) error {
		return &Error{Code: ErrCodeSchema, Message: msg, Title: ex.Title, Line: ex.Line, Err: err}
	}

	// type: filename marker unless overridden.
	tc.Type = registry.TypeWorkflow
	if ex.Task {
		tc.Type = registry.TypeTask
	}
	if v, ok := cfg["type"]; ok {
		s, ok := v.(string)
		if !ok {
			return schemaErr(fmt.Sprintf("type: expected string, got %T", v), nil)
		}
		tc.Type = registry.CaseType(s)
	}

	// target: defaults to the extracted target name.
	tc.Target = ex.Target
	if v, ok := cfg["target"]; ok {
		s, ok := v.(string)
		if !ok {
			return schemaErr(fmt.Sprintf("target: expected string, got %T", v), nil)
		}
		tc.Target = s
	}

	tc.Priority = registry.PriorityRequired
	if v, ok := cfg["priority"]; ok {
		s, ok := v.(string)
		if !ok {
			return schemaErr(fmt.Sprintf("priority: expected string, got %T", v), nil)
		}
		tc.Priority = registry.Priority(s)
	}

	// fail: filename marker unless overridden.
	tc.Fail = ex.Fail
	if v, ok := cfg["fail"]; ok {
		bv, ok := v.(bool)
		if !ok {
			return schemaErr(fmt.Sprintf("fail: expected bool, got %T", v), nil)
		}
		tc.Fail = bv
	}

	tc.ExcludeOutput = []string{}
	if v, ok := cfg["exclude_output"]; ok {
		list, err := registry.StringListFromValue("exclude_output", v)
		if err != nil {
			return schemaErr("cannot promote exclude_output", err)
		}
		tc.ExcludeOutput = list
	}

	tc.ReturnCodes = registry.AnyReturnCode()
	if v, ok := cfg["returnCodes"]; ok {
		rc, err := registry.ReturnCodesFromValue(v)
		if err != nil {
			return schemaErr("cannot promote returnCodes", err)
		}
		tc.ReturnCodes = rc
	}

	tc.Dependencies = []string{}
	if v, ok := cfg["dependencies"]; ok {
		list, err := registry.StringListFromValue("dependencies", v)
		if err != nil {
			return schemaErr("cannot promote dependencies", err)
		}
		tc.Dependencies = list
	}

	tc.Tags = []string{}
	if v, ok := cfg["tags"]; ok {
		list, err := registry.StringListFromValue("tags", v)
		if err != nil {
			return schemaErr("cannot promote tags", err)
		}
		tc.Tags = list
	}

	var err error
	if tc.Input, err = parseSection(ex.Input); err != nil {
		return schemaErr("invalid example input", err)
	}
	if tc.Output, err = parseSection(ex.Output); err != nil {
		return schemaErr("invalid example output", err)
	}
	return nil
}

// parseSection decodes an optional JSON object section; absent or blank
// sections default to the empty mapping.
func parseSection(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DuplicatePathError indicates two test cases resolved to the same
// materialized source path within one registry.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate test case path: %s", e.Path)
}

// Registry is the ordered, append-only collection of test cases produced
// by one extraction pass. Insertion order is preserved through
// serialization; a path may appear at most once.
type Registry struct {
	cases []TestCase
	paths map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{paths: make(map[string]struct{})}
}

// Add appends a test case, canonicalizing nil collections to their empty
// forms so the serialized record never contains JSON null.
func (r *Registry) Add(tc TestCase) error {
	if _, ok := r.paths[tc.Path]; ok {
		return &DuplicatePathError{Path: tc.Path}
	}
	if tc.ExcludeOutput == nil {
		tc.ExcludeOutput = []string{}
	}
	if tc.Dependencies == nil {
		tc.Dependencies = []string{}
	}
	if tc.Tags == nil {
		tc.Tags = []string{}
	}
	if tc.Input == nil {
		tc.Input = map[string]any{}
	}
	if tc.Output == nil {
		tc.Output = map[string]any{}
	}
	r.paths[tc.Path] = struct{}{}
	r.cases = append(r.cases, tc)
	return nil
}

// Cases returns the test cases in insertion order.
func (r *Registry) Cases() []TestCase {
	return r.cases
}

// Len returns the number of registered cases.
func (r *Registry) Len() int {
	return len(r.cases)
}

// Write serializes the registry as a JSON array with stable field order.
func (r *Registry) Write(w io.Writer) error {
	cases := r.cases
	if cases == nil {
		cases = []TestCase{}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Save writes the registry to the given file path.
func (r *Registry) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create registry file: %w", err)
	}
	defer f.Close()
	if err := r.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// Read parses a serialized registry, enforcing the unique-path invariant.
func Read(rd io.Reader) (*Registry, error) {
	var cases []TestCase
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&cases); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	reg := New()
	for _, tc := range cases {
		if err := reg.Add(tc); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Load reads a serialized registry from a file.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

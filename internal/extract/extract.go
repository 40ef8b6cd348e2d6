// Package extract mines runnable example programs embedded in a WDL
// specification document and turns them into a canonical test case
// registry. Extraction is one ordered pass and fail-fast: any malformed
// example aborts the whole batch, because a partially extracted registry
// is worse than none.
package extract

import (
	"fmt"
	"io"
	"os"

	"github.com/openwdl/conformance/internal/registry"
)

// Options configures one extraction pass.
type Options struct {
	// OutDir is where program sources and the registry are written.
	OutDir string

	// Version is the target WDL version; every example must declare it.
	Version string

	// Unclosed selects the policy for a trailing unclosed block.
	Unclosed UnclosedPolicy
}

// Extract scans the document, parses every example block, and builds the
// registry. The first error aborts the pass.
func Extract(r io.Reader, opts Options) (*registry.Registry, error) {
	builder, err := NewBuilder(opts.OutDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	sc := NewScanner(r, opts.Unclosed)
	for sc.Scan() {
		ex, err := Parse(sc.Block(), opts.Version)
		if err != nil {
			return nil, err
		}
		tc, err := builder.Build(ex)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(*tc); err != nil {
			// Unreachable in practice: the builder's exclusive file
			// create already rejects duplicate titles.
			return nil, &Error{
				Code:    ErrCodeDuplicateCase,
				Message: err.Error(),
				Title:   ex.Title,
				Line:    ex.Line,
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return reg, nil
}

// ExtractFile runs Extract over a document on disk.
func ExtractFile(path string, opts Options) (*registry.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open specification document: %w", err)
	}
	defer f.Close()
	return Extract(f, opts)
}

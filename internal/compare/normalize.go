package compare

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PathPolicy selects how an existing regular file is reduced during
// normalization. Engines differ in whether they stage outputs inside or
// outside the declared output root, so the reduction is a per-adapter
// choice.
type PathPolicy string

const (
	// PolicyRelative prefers the path relative to the base directory,
	// falling back to the bare filename when the file lies outside it.
	PolicyRelative PathPolicy = "relative"

	// PolicyBasename always reduces to the last path segment.
	PolicyBasename PathPolicy = "basename"
)

// Normalizer canonicalizes a raw engine result value into a comparable
// form. Expected values are plain literals; normalization collapses the
// executor-specific absolute-path noise from the actual values so the
// two can be compared for structural equality.
type Normalizer struct {
	// BaseDir is the output base directory paths are resolved against.
	BaseDir string

	// Policy selects the file path reduction.
	Policy PathPolicy
}

// Normalize reduces one raw output value. Rules, applied recursively:
//
//   - a string naming an existing regular file is replaced per the policy
//   - a string naming an existing directory is replaced by the sorted
//     list of relative paths of every regular file it contains
//   - any other string passes through literally
//   - a list is normalized element-wise, preserving order
//   - every other value (number, bool, null, mapping) is unchanged
//
// Normalization is idempotent: reduced values no longer name existing
// paths, so a second pass leaves them alone.
func (n *Normalizer) Normalize(v any) any {
	switch val := v.(type) {
	case string:
		return n.normalizeString(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = n.Normalize(elem)
		}
		return out
	default:
		return v
	}
}

func (n *Normalizer) normalizeString(s string) any {
	info, err := os.Stat(s)
	if err != nil {
		return s
	}
	if info.IsDir() {
		files, err := listFiles(s)
		if err != nil {
			return s
		}
		return files
	}
	if !info.Mode().IsRegular() {
		return s
	}

	switch n.Policy {
	case PolicyBasename:
		return filepath.Base(s)
	default:
		if rel, ok := n.relativeToBase(s); ok {
			return rel
		}
		return filepath.Base(s)
	}
}

// relativeToBase expresses path relative to the base directory when it
// lies underneath it.
func (n *Normalizer) relativeToBase(path string) (string, bool) {
	if n.BaseDir == "" {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	base, err := filepath.Abs(n.BaseDir)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// listFiles returns the sorted relative paths of every regular file under
// dir, recursively. Directory identity is content membership, not name.
func listFiles(dir string) ([]any, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	out := make([]any, len(files))
	for i, f := range files {
		out[i] = f
	}
	return out, nil
}

package compare

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Summary is an immutable per-verdict tally plus the ordered list of
// failing case paths. It is accumulated functionally over case results,
// so evaluation can be parallelized without shared counters.
type Summary struct {
	Passed      int      `json:"passed"`
	Warned      int      `json:"warned"`
	Failed      int      `json:"failed"`
	Invalid     int      `json:"invalid"`
	Ignored     int      `json:"ignored"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

// Add returns a new summary with the result counted.
func (s Summary) Add(r Result) Summary {
	switch r.Verdict {
	case Pass:
		s.Passed++
	case Warn:
		s.Warned++
	case Fail:
		s.Failed++
		s.FailedPaths = append(append([]string(nil), s.FailedPaths...), r.Path)
	case Invalid:
		s.Invalid++
	case Ignore:
		s.Ignored++
	}
	return s
}

// Summarize folds a result list into a summary.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s = s.Add(r)
	}
	return s
}

// Total is the number of counted results.
func (s Summary) Total() int {
	return s.Passed + s.Warned + s.Failed + s.Invalid + s.Ignored
}

// Fprint writes the per-verdict counts in the harness's summary format.
func (s Summary) Fprint(w io.Writer) {
	fmt.Fprintf(w, "Total tests: %d\n", s.Total())
	fmt.Fprintf(w, "Passed: %d\n", s.Passed)
	fmt.Fprintf(w, "Warnings: %d\n", s.Warned)
	fmt.Fprintf(w, "Failures: %d\n", s.Failed)
	fmt.Fprintf(w, "Invalid outputs: %d\n", s.Invalid)
	fmt.Fprintf(w, "Ignored: %d\n", s.Ignored)
}

// WriteFailedList writes one failing path per line.
func (s Summary) WriteFailedList(w io.Writer) error {
	if len(s.FailedPaths) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(s.FailedPaths, "\n")+"\n")
	return err
}

// SaveFailedList writes the failed-path artifact. It is a no-op when
// there are no failures.
func (s Summary) SaveFailedList(path string) error {
	if len(s.FailedPaths) == 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create failed-tests file: %w", err)
	}
	defer f.Close()
	if err := s.WriteFailedList(f); err != nil {
		return err
	}
	return f.Close()
}

package extract

import (
	"bufio"
	"io"
	"strings"
)

// Block delimiters in the specification document. A closing delimiter
// always terminates the currently open block; nesting is not supported.
const (
	openDelim  = "<details>"
	closeDelim = "</details>"
)

// UnclosedPolicy controls what happens when end-of-input is reached while
// a block is still open.
type UnclosedPolicy int

const (
	// SkipUnclosed silently drops a trailing unclosed block. This is the
	// legacy behavior and the default.
	SkipUnclosed UnclosedPolicy = iota

	// StrictUnclosed treats a trailing unclosed block as a grammar error.
	StrictUnclosed
)

// Block is one raw candidate example isolated from the document,
// inclusive of both delimiter lines.
type Block struct {
	// Text is the raw block text, newline-joined.
	Text string

	// Line is the 1-based document line of the opening delimiter.
	Line int
}

// Scanner isolates candidate example blocks from a line-oriented document
// in a single left-to-right pass. Text outside any delimiter pair is
// discarded. The sequence is lazy, finite, and non-restartable.
//
// Usage follows the bufio.Scanner pattern:
//
//	sc := NewScanner(r, SkipUnclosed)
//	for sc.Scan() {
//	    block := sc.Block()
//	    ...
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	lines  *bufio.Scanner
	policy UnclosedPolicy

	line  int // current document line number
	block Block
	err   error
	done  bool
}

// NewScanner creates a scanner over the given document.
func NewScanner(r io.Reader, policy UnclosedPolicy) *Scanner {
	lines := bufio.NewScanner(r)
	// Spec documents carry long example lines; raise the line limit well
	// beyond bufio's 64K default.
	lines.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Scanner{lines: lines, policy: policy}
}

// Scan advances to the next complete block. It returns false at
// end-of-input or on error; consult Err afterwards.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}

	var buf []string
	openLine := 0

	for s.lines.Scan() {
		s.line++
		text := s.lines.Text()

		if buf == nil {
			if strings.Contains(text, openDelim) {
				buf = []string{text}
				openLine = s.line
			}
			continue
		}

		buf = append(buf, text)
		if strings.Contains(text, closeDelim) {
			s.block = Block{Text: strings.Join(buf, "\n"), Line: openLine}
			return true
		}
	}

	s.done = true
	if err := s.lines.Err(); err != nil {
		s.err = err
		return false
	}
	if buf != nil && s.policy == StrictUnclosed {
		s.err = &Error{
			Code:    ErrCodeGrammar,
			Message: "block opened but never closed before end of input",
			Line:    openLine,
		}
	}
	return false
}

// Block returns the block found by the last successful call to Scan.
func (s *Scanner) Block() Block {
	return s.block
}

// Err returns the first error encountered, if any.
func (s *Scanner) Err() error {
	return s.err
}

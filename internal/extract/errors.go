package extract

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes extraction failures. Every extraction error is
// batch-fatal: a partially extracted registry is worse than none.
type ErrorCode string

const (
	// ErrCodeGrammar indicates a block does not match the example grammar.
	ErrCodeGrammar ErrorCode = "GRAMMAR"

	// ErrCodeNaming indicates a title does not match the filename grammar.
	ErrCodeNaming ErrorCode = "NAMING"

	// ErrCodeVersion indicates a missing or mismatched version declaration.
	ErrCodeVersion ErrorCode = "VERSION"

	// ErrCodeDuplicateCase indicates a derived output path already exists.
	ErrCodeDuplicateCase ErrorCode = "DUPLICATE_CASE"

	// ErrCodeSchema indicates a test config value that cannot be promoted
	// to its canonical form.
	ErrCodeSchema ErrorCode = "SCHEMA"
)

// Error is an extraction failure with enough context to identify the
// offending example block.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Title is the example title, when it was recognized before failing.
	Title string

	// Line is the 1-based document line of the block's opening delimiter.
	Line int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	where := ""
	if e.Title != "" {
		where = fmt.Sprintf(" (example %q)", e.Title)
	} else if e.Line > 0 {
		where = fmt.Sprintf(" (block at line %d)", e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s%s: %v", e.Code, e.Message, where, e.Err)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, where)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an extraction Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when the source lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptySource is returned when the source has no header row.
	ErrEmptySource = errors.New("empty source")
)

// ParseError reports a value that could not be parsed. Row is 1-based and
// counts data rows only.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

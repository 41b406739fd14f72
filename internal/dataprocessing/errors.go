package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel workbooks
	ErrUnsupportedFormat = errors.New("unsupported file format: use .csv or .xlsx files only")

	// ErrEmptyFile is returned when the input has no header row
	ErrEmptyFile = errors.New("file has no header row")

	// ErrInvalidValue is wrapped by every ParseError
	ErrInvalidValue = errors.New("invalid cell value")
)

// MissingColumnsError lists required columns absent from the header
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ParseError reports a cell that could not be converted. Row is 1-based and
// counts the header row.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrInvalidValue, e.Err}
}

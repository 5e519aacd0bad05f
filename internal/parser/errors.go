package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrHeaderMismatch means a candidate header lacked voltage or clock columns.
	ErrHeaderMismatch = errors.New("header mismatch")

	// ErrFormat means a data field was missing or not a plain number.
	ErrFormat = errors.New("malformed field")

	// ErrRange means a parsed value fell outside the configured bounds.
	ErrRange = errors.New("value out of range")

	// ErrAlreadyStarted is returned by Run on a parser that has run before.
	ErrAlreadyStarted = errors.New("parser already started")
)

// LineError describes why a data line was rejected. It wraps ErrFormat or
// ErrRange.
type LineError struct {
	Line  int64
	Core  int
	Field string
	Value string
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: core %d %s %q: %v", e.Line, e.Core, e.Field, e.Value, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// OpenError is returned when the log file cannot be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

package services

import "fmt"

// ConnectionError means the store could not be reached. It ends the run
// before any line is read.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to store: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// InputError means the input could not be opened or failed mid-stream.
// Line is the number of lines delivered before the failure.
type InputError struct {
	Path string
	Line int
	Err  error
}

func (e *InputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read %s after %d lines: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ParseError describes a malformed record. Column is 1-based; 0 means the
// record as a whole.
type ParseError struct {
	Line     int
	Column   int
	Field    string
	Expected string
	Actual   string
}

func (e *ParseError) Error() string {
	if e.Column == 0 {
		return fmt.Sprintf("line %d: expected %s, got %s", e.Line, e.Expected, e.Actual)
	}
	return fmt.Sprintf("line %d, column %d (%s): expected %s, got %q",
		e.Line, e.Column, e.Field, e.Expected, e.Actual)
}

// StoreError is a failed store operation for a single record.
type StoreError struct {
	Line int
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

package remap

import "fmt"

// CompileError reports mapping source that could not be parsed or compiled.
// The previously active mapping stays in place.
type CompileError struct {
	Diagnostic string
	Err        error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("remap: compile error: %s", e.Diagnostic)
}

func (e *CompileError) Unwrap() error { return e.Err }

// RuntimeError reports a mapping that raised an error while running.
type RuntimeError struct {
	Diagnostic string
	Err        error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("remap: runtime error: %s", e.Diagnostic)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

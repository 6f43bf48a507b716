package otter

import "fmt"

// The three-way error taxonomy from spec.md §7: a script that never
// compiles, a script that throws or traps at runtime, and an operation
// refused by the capability bundle. Each wraps the underlying cause so
// callers can still inspect it with errors.Unwrap/errors.As.
type CompileError struct {
	Line    int
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

func (e *CompileError) Unwrap() error { return e.Cause }

// RuntimeError wraps an uncaught JS exception (spec.md §7 "unhandled
// exceptions ... surfaced to the caller"). ScriptValue is the rendered
// thrown value (typically name+message for Error instances).
type RuntimeError struct {
	ScriptValue string
	Cause       error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("uncaught exception: %s", e.ScriptValue)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// PermissionDeniedError is returned when a host op is invoked without the
// required capability (spec.md §4.7 "capability-gated native extension
// bridge").
type PermissionDeniedError struct {
	Capability string
	Op         string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: op %q requires capability %q", e.Op, e.Capability)
}

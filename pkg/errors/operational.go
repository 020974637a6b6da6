// Package errors provides error types that carry the context of a failed
// workflow file operation.
package errors

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// OperationalError wraps a failed file operation with the workflow name,
// the path involved and when it happened.
type OperationalError struct {
	Operation string    // What operation was being performed
	Workflow  string    // Which workflow, by name
	Path      string    // File involved (if applicable)
	Timestamp time.Time // When error occurred
	Cause     error     // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err := storage.WriteFileAtomic(path, data); err != nil {
//	    return NewOperationalError("save workflow", wf.Name, path, err)
//	}
func NewOperationalError(operation, workflow, path string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		Workflow:  workflow,
		Path:      path,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// Error implements the error interface.
//
// Format: `operation "workflow" (path): cause`. Empty parts are omitted.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	msg := e.Operation
	if e.Workflow != "" {
		msg += fmt.Sprintf(" %q", e.Workflow)
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fields returns the error context as zap fields
func (e *OperationalError) Fields() []zap.Field {
	if e == nil {
		return nil
	}
	return []zap.Field{
		zap.String("operation", e.Operation),
		zap.String("workflow", e.Workflow),
		zap.String("path", e.Path),
		zap.Time("at", e.Timestamp),
		zap.Error(e.Cause),
	}
}

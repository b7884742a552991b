// Package exception provides the error types used across the worklist engine.
// Errors are categorized by Kind so that callers can tell a contract violation
// (a bad call, recoverable by the caller) from a worker failure (intercepted at the runner boundary).
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a WorklistError.
type Kind string

const (
	// KindContractViolation marks a call that broke an API contract, e.g. a mis-sized results sequence.
	KindContractViolation Kind = "ContractViolation"
	// KindWorkerFailure marks an unhandled failure raised inside a unit of work.
	KindWorkerFailure Kind = "WorkerFailure"
	// KindInstanceConflict marks a second process finding an existing instance lock.
	KindInstanceConflict Kind = "InstanceConflict"
	// KindConfig marks invalid or unreadable configuration.
	KindConfig Kind = "Config"
)

// Sentinel errors matched with errors.Is against a WorklistError of the same kind.
var (
	ErrContractViolation = errors.New(string(KindContractViolation))
	ErrWorkerFailure     = errors.New(string(KindWorkerFailure))
	ErrInstanceConflict  = errors.New(string(KindInstanceConflict))
	ErrConfig            = errors.New(string(KindConfig))
)

// WorklistError is the error type returned by worklist components.
// It holds the module where the error occurred, a message, the wrapped original error and its kind.
type WorklistError struct {
	// Module indicates where the error occurred (e.g., "tracker", "selection", "runner").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind classifies the error.
	Kind Kind
	// StackTrace is the stack trace captured at construction time.
	StackTrace string
}

// NewWorklistError creates a new WorklistError.
func NewWorklistError(kind Kind, module, message string, originalErr error) *WorklistError {
	return &WorklistError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
		StackTrace:  captureStack(),
	}
}

// NewWorklistErrorf creates a new WorklistError using a format string.
// If the last argument is an error it is wrapped as OriginalErr and not used for formatting.
//
// Example:
//
//	NewWorklistErrorf(KindContractViolation, "tracker", "expected %d results, got %d", 3, 2)
//	NewWorklistErrorf(KindConfig, "config", "cannot read %s", path, err)
func NewWorklistErrorf(kind Kind, module, format string, a ...interface{}) *WorklistError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &WorklistError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		Kind:        kind,
		StackTrace:  captureStack(),
	}
}

// NewContractViolation is a shorthand for a KindContractViolation error.
func NewContractViolation(module, format string, a ...interface{}) *WorklistError {
	return NewWorklistErrorf(KindContractViolation, module, format, a...)
}

// NewWorkerFailure wraps an error raised by a unit of work.
func NewWorkerFailure(module, message string, originalErr error) *WorklistError {
	return NewWorklistError(KindWorkerFailure, module, message, originalErr)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *WorklistError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *WorklistError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the sentinel for this error's kind.
func (e *WorklistError) Is(target error) bool {
	switch target {
	case ErrContractViolation:
		return e.Kind == KindContractViolation
	case ErrWorkerFailure:
		return e.Kind == KindWorkerFailure
	case ErrInstanceConflict:
		return e.Kind == KindInstanceConflict
	case ErrConfig:
		return e.Kind == KindConfig
	}
	return false
}

// IsContractViolation reports whether err is (or wraps) a contract violation.
func IsContractViolation(err error) bool {
	return err != nil && errors.Is(err, ErrContractViolation)
}

// IsWorkerFailure reports whether err is (or wraps) a worker failure.
func IsWorkerFailure(err error) bool {
	return err != nil && errors.Is(err, ErrWorkerFailure)
}

// IsInstanceConflict reports whether err is (or wraps) an instance lock conflict.
func IsInstanceConflict(err error) bool {
	return err != nil && errors.Is(err, ErrInstanceConflict)
}

// IsConfig reports whether err is (or wraps) a configuration error.
func IsConfig(err error) bool {
	return err != nil && errors.Is(err, ErrConfig)
}

// ExtractErrorMessage extracts the error message string from an error.
// For WorklistError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var we *WorklistError
	if errors.As(err, &we) {
		return we.Message
	}
	return err.Error()
}

// Detail returns a multi-line description suitable for the detail field of an error sink:
// the full error chain followed by the captured stack trace when available.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var we *WorklistError
	if errors.As(err, &we) && we.StackTrace != "" {
		return err.Error() + "\n" + we.StackTrace
	}
	return err.Error()
}

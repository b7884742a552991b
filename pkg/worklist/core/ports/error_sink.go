// Package ports declares the capabilities the worklist core consumes from its host application.
package ports

// ErrorSink reports user-facing problems. The host decides how to present them
// (dialog, console, log). Implementations are called from the owning goroutine unless wrapped otherwise.
type ErrorSink interface {
	// Warn reports a recoverable problem.
	Warn(title, text, detail string)
	// Error reports a failed operation.
	Error(title, text, detail string)
	// Fatal reports an unrecoverable problem and terminates the process with exitCode.
	Fatal(title, text, detail string, exitCode int)
}

// Package console implements ports.ErrorSink for terminal programs.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
)

// Sink prints reports as
//
//	Warning: <text>
//	  <detail line 1>
//	  <detail line 2>
//
// The title is not printed.
type Sink struct {
	mu   sync.Mutex
	out  io.Writer
	exit func(code int)
}

// Option configures a Sink.
type Option func(*Sink)

// WithWriter sets the destination. Defaults to os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(s *Sink) { s.out = w }
}

// WithExit replaces os.Exit, which Fatal calls after printing.
func WithExit(exit func(code int)) Option {
	return func(s *Sink) { s.exit = exit }
}

// New creates a console Sink.
func New(opts ...Option) *Sink {
	s := &Sink{out: os.Stderr, exit: os.Exit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) print(kind, text, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	indented := strings.Join(strings.Split(detail, "\n"), "\n  ")
	fmt.Fprintf(s.out, "%s: %s\n  %s\n", kind, text, indented)
}

// Warn prints a "Warning" report.
func (s *Sink) Warn(title, text, detail string) {
	s.print("Warning", text, detail)
}

// Error prints an "Error" report.
func (s *Sink) Error(title, text, detail string) {
	s.print("Error", text, detail)
}

// Fatal prints a "Fatal" report and exits with exitCode.
func (s *Sink) Fatal(title, text, detail string, exitCode int) {
	s.print("Fatal", text, detail)
	s.exit(exitCode)
}

var _ ports.ErrorSink = (*Sink)(nil)

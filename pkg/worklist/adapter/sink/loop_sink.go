// Package sink holds ErrorSink decorators.
package sink

import (
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// LoopSink forwards every call to an inner sink as a task on the owner's executor, so that a
// presentation-layer sink is only ever touched from the owning goroutine. If the executor is
// closed the report is written to the log instead.
type LoopSink struct {
	exec  loop.Executor
	inner ports.ErrorSink
}

// NewLoopSink wraps inner.
func NewLoopSink(exec loop.Executor, inner ports.ErrorSink) *LoopSink {
	return &LoopSink{exec: exec, inner: inner}
}

// Warn forwards a warning to the inner sink on the executor.
func (s *LoopSink) Warn(title, text, detail string) {
	if !s.exec.Post(func() { s.inner.Warn(title, text, detail) }) {
		logger.Warnf("%s: %s\n%s", title, text, detail)
	}
}

// Error forwards an error report to the inner sink on the executor.
func (s *LoopSink) Error(title, text, detail string) {
	if !s.exec.Post(func() { s.inner.Error(title, text, detail) }) {
		logger.Errorf("%s: %s\n%s", title, text, detail)
	}
}

// Fatal terminates the process through the inner sink. With a closed executor the inner sink is
// called directly, since the process is about to exit anyway.
func (s *LoopSink) Fatal(title, text, detail string, exitCode int) {
	if !s.exec.Post(func() { s.inner.Fatal(title, text, detail, exitCode) }) {
		s.inner.Fatal(title, text, detail, exitCode)
	}
}

var _ ports.ErrorSink = (*LoopSink)(nil)

// Package listener aggregates the run listeners shipped with the worklist engine.
package listener

import (
	"context"
	"sync"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// RunCompletionSignaler is a RunListener that closes Done after the first run whose outcome
// was delivered to the owner.
type RunCompletionSignaler struct {
	// Done is closed once a delivered run finishes.
	Done chan struct{}
	once sync.Once
}

// NewRunCompletionSignaler creates a signaler with an open Done channel.
func NewRunCompletionSignaler() *RunCompletionSignaler {
	return &RunCompletionSignaler{Done: make(chan struct{})}
}

// BeforeRun does nothing.
func (l *RunCompletionSignaler) BeforeRun(ctx context.Context, run *model.RunExecution) {}

// AfterRun closes Done for a delivered run. Superseded runs do not signal.
func (l *RunCompletionSignaler) AfterRun(ctx context.Context, run *model.RunExecution) {
	if run.Delivery != model.DeliveryDelivered {
		return
	}
	l.once.Do(func() {
		logger.Debugf("RunCompletionSignaler: run %s (%s) delivered. Closing Done.", run.ID, run.Status)
		close(l.Done)
	})
}

var _ runner.RunListener = (*RunCompletionSignaler)(nil)

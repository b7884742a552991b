package runner

import (
	"context"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// RunListener observes the lifecycle of runs.
//
// BeforeRun is called on the worker goroutine before the work starts.
// AfterRun is called on the owner's executor once Status and Delivery are final, just before
// onDone or onError; if the executor no longer accepts tasks it is called on the worker goroutine.
type RunListener interface {
	BeforeRun(ctx context.Context, run *model.RunExecution)
	AfterRun(ctx context.Context, run *model.RunExecution)
}

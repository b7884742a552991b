package runner

import (
	"context"

	"github.com/tigerroll/worklist/pkg/worklist/core/channel"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
)

// Work is the caller-defined unit executed by a WorkerRunner on a worker goroutine.
//
// Execute reads the immutable batch, may push interim text through ch, and returns one
// ResultEntry per batch entry in batch order. A returned error or a panic takes the
// worker-failure path; the batch's rows are then left as they were before dispatch.
type Work[P any] interface {
	Execute(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) ([]model.ResultEntry, error)
}

// Outcome is the terminal value of an AsyncWork.
type Outcome struct {
	Results []model.ResultEntry
	Err     error
}

// AsyncWork is work that completes later. Begin must not block; the runner waits for the
// returned channel on the worker goroutine.
type AsyncWork[P any] interface {
	Begin(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) <-chan Outcome
}

// Func adapts a plain function to Work.
type Func[P any] func(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) ([]model.ResultEntry, error)

// Execute calls f.
func (f Func[P]) Execute(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
	return f(ctx, batch, ch)
}

// AsyncFunc adapts a plain function to AsyncWork.
type AsyncFunc[P any] func(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) <-chan Outcome

// Begin calls f.
func (f AsyncFunc[P]) Begin(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) <-chan Outcome {
	return f(ctx, batch, ch)
}

// Await turns an AsyncWork into Work by waiting for its outcome.
// If ctx ends first the run fails with the context error; the async work is not cancelled by this.
func Await[P any](w AsyncWork[P]) Work[P] {
	return Func[P](func(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel) ([]model.ResultEntry, error) {
		done := w.Begin(ctx, batch, ch)
		if done == nil {
			return nil, exception.NewWorkerFailure(module, "async work returned no outcome channel", nil)
		}
		select {
		case out, ok := <-done:
			if !ok {
				return nil, exception.NewWorkerFailure(module, "async work finished without an outcome", nil)
			}
			return out.Results, out.Err
		case <-ctx.Done():
			return nil, exception.NewWorkerFailure(module, "stopped waiting for async work", ctx.Err())
		}
	})
}

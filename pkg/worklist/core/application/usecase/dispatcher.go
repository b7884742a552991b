// Package usecase wires the tracker and the runner into the dispatch round trip.
package usecase

import (
	"context"
	"errors"
	"fmt"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	ports "github.com/tigerroll/worklist/pkg/worklist/core/ports"
	runner "github.com/tigerroll/worklist/pkg/worklist/core/runner"
	tracker "github.com/tigerroll/worklist/pkg/worklist/core/tracker"
	exception "github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const module = "dispatcher"

// ErrNothingToDispatch is returned when no row is checked.
var ErrNothingToDispatch = errors.New("no checked rows to dispatch")

// DefaultErrorCode is the code passed to OnFinished errors when none is configured.
const DefaultErrorCode = 1

// Titles and texts reported to the sink.
const (
	ApplyFailureTitle = "error"
	ApplyFailureText  = "results could not be applied"
)

// DispatchOptions customises one DispatchChecked call.
type DispatchOptions struct {
	// DisableOnSuccess overrides the tracker policy for this batch when set.
	DisableOnSuccess *bool
	// DeleteSucceeded purges succeeded rows right after the results are applied.
	DeleteSucceeded bool
	// OnFinished is called on the owner's executor after the batch was applied (err == nil)
	// or abandoned (err is a worker failure or a contract violation). It is not called for a
	// batch superseded by a later dispatch.
	OnFinished func(err error)
}

// Dispatcher runs the round trip: snapshot the checked rows, execute them on the runner,
// and apply the outcome back onto the tracker. It must be used from the owning goroutine.
type Dispatcher[P any] struct {
	tracker   *tracker.WorkTracker[P]
	runner    *runner.WorkerRunner[P]
	sink      ports.ErrorSink
	recorder  metrics.MetricRecorder
	errorCode int

	current *model.WorkBatch[P]
}

// NewDispatcher creates a Dispatcher. sink and recorder may be nil.
// The tracker and the runner must deliver on the same executor, otherwise status updates and
// results would reach the rows from different goroutines.
func NewDispatcher[P any](t *tracker.WorkTracker[P], r *runner.WorkerRunner[P], sink ports.ErrorSink, recorder metrics.MetricRecorder, errorCode int) (*Dispatcher[P], error) {
	if t.Executor() != r.Executor() {
		return nil, exception.NewContractViolation(module, "tracker and runner %s use different executors", r.Name())
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if errorCode == 0 {
		errorCode = DefaultErrorCode
	}
	return &Dispatcher[P]{
		tracker:   t,
		runner:    r,
		sink:      sink,
		recorder:  recorder,
		errorCode: errorCode,
	}, nil
}

// Busy reports whether a dispatched batch is still waiting for its outcome.
func (d *Dispatcher[P]) Busy() bool {
	return d.current != nil
}

// DispatchChecked dispatches the checked rows and returns a snapshot of the started run.
// A batch of this dispatcher still in flight is abandoned first: the runner discards its outcome.
func (d *Dispatcher[P]) DispatchChecked(ctx context.Context, opts DispatchOptions) (*model.RunExecution, error) {
	if d.tracker.CheckedCount() == 0 {
		return nil, ErrNothingToDispatch
	}
	if d.current != nil {
		if err := d.tracker.AbandonBatch(d.current); err != nil {
			logger.Debugf("Dispatcher: previous batch %s already gone: %v", d.current.ID(), err)
		}
		logger.Infof("Dispatcher: batch %s superseded.", d.current.ID())
		d.current = nil
	}

	var dispatchOpts []tracker.DispatchOption
	if opts.DisableOnSuccess != nil {
		dispatchOpts = append(dispatchOpts, tracker.WithDisableOnSuccess(*opts.DisableOnSuccess))
	}
	batch, ch := d.tracker.DispatchChecked(dispatchOpts...)
	d.current = batch
	d.recorder.RecordDispatch(ctx, d.runner.Name(), batch.Len())

	run := d.runner.Start(ctx, batch, ch,
		func(results []model.ResultEntry) { d.onDone(ctx, batch, results, opts) },
		runner.WithErrorCode(d.errorCode, func(code int) { d.onError(batch, code, opts) }),
	)
	logger.Infof("Dispatcher: dispatched %d row(s) as run %s.", batch.Len(), run.ID)
	return run, nil
}

func (d *Dispatcher[P]) finish(batch *model.WorkBatch[P], opts DispatchOptions, err error) {
	if d.current == batch {
		d.current = nil
	}
	if opts.OnFinished != nil {
		opts.OnFinished(err)
	}
}

func (d *Dispatcher[P]) onDone(ctx context.Context, batch *model.WorkBatch[P], results []model.ResultEntry, opts DispatchOptions) {
	if !d.tracker.IsPending(batch) {
		logger.Debugf("Dispatcher: batch %s was abandoned (table cleared), results ignored.", batch.ID())
		d.finish(batch, opts, nil)
		return
	}
	if err := d.tracker.ApplyBatchResults(batch, results); err != nil {
		d.report(err)
		if abandonErr := d.tracker.AbandonBatch(batch); abandonErr != nil {
			logger.Debugf("Dispatcher: batch %s could not be abandoned: %v", batch.ID(), abandonErr)
		}
		d.finish(batch, opts, err)
		return
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	d.recorder.RecordResults(ctx, d.runner.Name(), succeeded, len(results)-succeeded)

	if opts.DeleteSucceeded {
		removed := d.tracker.DeleteSucceeded()
		logger.Debugf("Dispatcher: purged %d succeeded row(s).", len(removed))
	}
	d.finish(batch, opts, nil)
}

func (d *Dispatcher[P]) onError(batch *model.WorkBatch[P], code int, opts DispatchOptions) {
	if err := d.tracker.AbandonBatch(batch); err != nil {
		logger.Debugf("Dispatcher: batch %s could not be abandoned: %v", batch.ID(), err)
	}
	d.finish(batch, opts, exception.NewWorkerFailure(module, fmt.Sprintf("run failed with code %d", code), nil))
}

func (d *Dispatcher[P]) report(err error) {
	if d.sink == nil {
		logger.Errorf("Dispatcher: %s: %v", ApplyFailureText, err)
		return
	}
	d.sink.Error(ApplyFailureTitle, ApplyFailureText, exception.Detail(err))
}

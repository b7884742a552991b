// Package runner executes work batches off the owning goroutine and delivers the outcome
// back to it exactly once.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tigerroll/worklist/pkg/worklist/core/channel"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/loop"
	"github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/core/ports"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const module = "worker_runner"

// DefaultRunnerName is used when no name is configured.
const DefaultRunnerName = "worker"

// Sink titles used for worker failures.
const (
	FailureTitle = "warning"
	FailureText  = "unhandled error in worker"
)

type options struct {
	name      string
	sink      ports.ErrorSink
	pool      *Pool
	tracer    metrics.Tracer
	listeners []RunListener
}

// Option configures a WorkerRunner.
type Option func(*options)

// WithName sets the runner name recorded on each run.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSink sets where worker failures are reported. Without a sink they are only logged.
func WithSink(sink ports.ErrorSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithPool shares a pool between runners. By default each runner gets its own pool of DefaultWorkersCount slots.
func WithPool(pool *Pool) Option {
	return func(o *options) { o.pool = pool }
}

// WithTracer sets the tracer wrapping each run.
func WithTracer(tracer metrics.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithListeners registers run listeners, called in order.
func WithListeners(listeners ...RunListener) Option {
	return func(o *options) { o.listeners = append(o.listeners, listeners...) }
}

type startOptions struct {
	errorCode *int
	onError   func(code int)
}

// StartOption customises one Start call.
type StartOption func(*startOptions)

// WithErrorCode makes a failing run call onError(code) on the owner's executor instead of onDone.
func WithErrorCode(code int, onError func(code int)) StartOption {
	return func(o *startOptions) {
		o.errorCode = &code
		o.onError = onError
	}
}

// WorkerRunner runs Work on a worker goroutine and delivers its outcome through an Executor.
//
// Only the most recent Start governs delivery: a run superseded by a later Start still executes
// to completion, but its onDone/onError is never called. Start must be called from the goroutine
// that drains the executor.
type WorkerRunner[P any] struct {
	work      Work[P]
	exec      loop.Executor
	name      string
	sink      ports.ErrorSink
	pool      *Pool
	tracer    metrics.Tracer
	listeners []RunListener

	generation atomic.Uint64
	active     atomic.Int32
}

// NewWorkerRunner creates a runner for work that delivers on exec.
func NewWorkerRunner[P any](work Work[P], exec loop.Executor, opts ...Option) *WorkerRunner[P] {
	o := options{name: DefaultRunnerName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool == nil {
		o.pool = NewPool(0)
	}
	if o.tracer == nil {
		o.tracer = metrics.NewNoOpTracer()
	}
	return &WorkerRunner[P]{
		work:      work,
		exec:      exec,
		name:      o.name,
		sink:      o.sink,
		pool:      o.pool,
		tracer:    o.tracer,
		listeners: o.listeners,
	}
}

// Name returns the runner name.
func (r *WorkerRunner[P]) Name() string {
	return r.name
}

// Executor returns the executor terminal deliveries run on.
func (r *WorkerRunner[P]) Executor() loop.Executor {
	return r.exec
}

// WorkersCount returns the number of runs the runner's pool executes at the same time.
func (r *WorkerRunner[P]) WorkersCount() int {
	return r.pool.Size()
}

// Active returns the number of started runs whose outcome was not delivered or discarded yet.
func (r *WorkerRunner[P]) Active() int {
	return int(r.active.Load())
}

// Start executes the work for batch on a new goroutine and returns a snapshot of the new run.
// onDone receives the results on the executor when the work succeeds and this run is still the latest.
func (r *WorkerRunner[P]) Start(ctx context.Context, batch *model.WorkBatch[P], ch *channel.StatusChannel, onDone func([]model.ResultEntry), opts ...StartOption) *model.RunExecution {
	var so startOptions
	for _, opt := range opts {
		opt(&so)
	}

	gen := r.generation.Add(1)
	run := model.NewRunExecution(r.name, batch.ID(), batch.Len())
	if so.errorCode != nil {
		code := *so.errorCode
		run.ErrorCode = &code
	}
	snapshot := run.Copy()

	r.active.Add(1)
	logger.Debugf("WorkerRunner '%s': starting run %s (batch %s, %d item(s)).", r.name, run.ID, run.BatchID, run.BatchSize)
	go r.execute(ctx, gen, run, batch, ch, onDone, so)
	return snapshot
}

func (r *WorkerRunner[P]) execute(ctx context.Context, gen uint64, run *model.RunExecution, batch *model.WorkBatch[P], ch *channel.StatusChannel, onDone func([]model.ResultEntry), so startOptions) {
	results, err := r.runWork(ctx, run, batch, ch)
	if err != nil {
		run.MarkAsFailed(err)
	} else {
		run.MarkAsCompleted()
	}

	posted := r.exec.Post(func() { r.deliver(ctx, gen, run, results, err, onDone, so) })
	if !posted {
		run.Delivery = model.DeliveryDiscarded
		r.afterRun(ctx, run)
		r.active.Add(-1)
		logger.Warnf("WorkerRunner '%s': executor closed, outcome of run %s discarded.", r.name, run.ID)
	}
}

func (r *WorkerRunner[P]) runWork(ctx context.Context, run *model.RunExecution, batch *model.WorkBatch[P], ch *channel.StatusChannel) (results []model.ResultEntry, err error) {
	if acqErr := r.pool.Acquire(ctx); acqErr != nil {
		return nil, exception.NewWorkerFailure(module, "no worker slot became available", acqErr)
	}
	defer r.pool.Release()

	// Tracer and listener panics fail the run like work panics do.
	spanCtx, end := ctx, func() {}
	defer func() { end() }()
	defer func() {
		if p := recover(); p != nil {
			results = nil
			err = recovered(fmt.Sprintf("run %s", run.ID), p)
		}
		if err != nil {
			if !exception.IsWorkerFailure(err) {
				err = exception.NewWorkerFailure(module, "work failed", err)
			}
			r.tracer.RecordError(spanCtx, module, err)
		}
	}()

	spanCtx, end = r.tracer.StartRunSpan(ctx, run)
	for _, l := range r.listeners {
		l.BeforeRun(spanCtx, run)
	}
	return r.work.Execute(spanCtx, batch, ch)
}

// deliver runs on the executor.
func (r *WorkerRunner[P]) deliver(ctx context.Context, gen uint64, run *model.RunExecution, results []model.ResultEntry, err error, onDone func([]model.ResultEntry), so startOptions) {
	current := r.generation.Load() == gen
	if current {
		run.Delivery = model.DeliveryDelivered
	} else {
		run.Delivery = model.DeliveryDiscarded
		logger.Debugf("WorkerRunner '%s': run %s was superseded, outcome discarded.", r.name, run.ID)
	}
	r.afterRun(ctx, run)
	r.active.Add(-1)

	if err != nil {
		r.reportFailure(err)
		if current && so.onError != nil {
			so.onError(*so.errorCode)
		}
		return
	}
	if current && onDone != nil {
		onDone(results)
	}
}

func (r *WorkerRunner[P]) afterRun(ctx context.Context, run *model.RunExecution) {
	for _, l := range r.listeners {
		l.AfterRun(ctx, run)
	}
}

func (r *WorkerRunner[P]) reportFailure(err error) {
	if r.sink == nil {
		logger.Warnf("WorkerRunner '%s': %s: %v", r.name, FailureText, err)
		return
	}
	r.sink.Warn(FailureTitle, FailureText, exception.Detail(err))
}

// recovered converts a recovered panic value into a worker failure. The captured stack
// includes the panicking frame.
func recovered(what string, p any) error {
	if err, ok := p.(error); ok {
		return exception.NewWorklistErrorf(exception.KindWorkerFailure, module, "%s panicked", what, err)
	}
	return exception.NewWorklistErrorf(exception.KindWorkerFailure, module, "%s panicked: %v", what, p)
}

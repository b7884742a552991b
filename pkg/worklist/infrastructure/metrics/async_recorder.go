package metrics

import (
	"context"
	"sync"
	"time"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// MetricEventType identifies what a queued MetricEvent records.
type MetricEventType string

const (
	MetricEventTypeRunStart       MetricEventType = "RunStart"
	MetricEventTypeRunEnd         MetricEventType = "RunEnd"
	MetricEventTypeDispatch       MetricEventType = "Dispatch"
	MetricEventTypeResults        MetricEventType = "Results"
	MetricEventTypeRecordDuration MetricEventType = "RecordDuration"
)

// MetricEvent is one queued call to the wrapped recorder.
type MetricEvent struct {
	Type       MetricEventType
	Run        *model.RunExecution
	RunnerName string
	Size       int
	Succeeded  int
	Failed     int
	Name       string
	Duration   time.Duration
	Tags       map[string]string
}

// AsyncMetricRecorder forwards MetricRecorder calls to a synchronous recorder on its own goroutine,
// so that neither workers nor the owner loop wait on a metrics backend.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder
}

// NewAsyncMetricRecorder starts the forwarding goroutine. bufferSize bounds the queue.
func NewAsyncMetricRecorder(bufferSize int, syncRecorder metrics.MetricRecorder) *AsyncMetricRecorder {
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRecorder,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: started with buffer size %d.", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	ctx := context.Background()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(ctx, event)
		case <-r.stopCh:
			// Drain what is already queued.
			for {
				select {
				case event := <-r.eventQueue:
					r.processEvent(ctx, event)
				default:
					return
				}
			}
		}
	}
}

func (r *AsyncMetricRecorder) processEvent(ctx context.Context, event MetricEvent) {
	switch event.Type {
	case MetricEventTypeRunStart:
		r.syncRecorder.RecordRunStart(ctx, event.Run)
	case MetricEventTypeRunEnd:
		r.syncRecorder.RecordRunEnd(ctx, event.Run)
	case MetricEventTypeDispatch:
		r.syncRecorder.RecordDispatch(ctx, event.RunnerName, event.Size)
	case MetricEventTypeResults:
		r.syncRecorder.RecordResults(ctx, event.RunnerName, event.Succeeded, event.Failed)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close stops the recorder after the queued events have been recorded. It is safe to call twice.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

// sendEvent queues an event, dropping it with a warning if the queue is full.
func (r *AsyncMetricRecorder) sendEvent(event MetricEvent) {
	select {
	case <-r.stopCh:
		logger.Debugf("AsyncMetricRecorder: closed, %s event dropped.", event.Type)
		return
	default:
	}
	select {
	case r.eventQueue <- event:
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full, %s event discarded.", event.Type)
	}
}

// RecordRunStart queues a copy of the run, since the caller keeps mutating it.
func (r *AsyncMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunStart, Run: run.Copy()})
}

// RecordRunEnd queues a copy of the finished run.
func (r *AsyncMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunEnd, Run: run.Copy()})
}

// RecordDispatch queues a dispatch event.
func (r *AsyncMetricRecorder) RecordDispatch(ctx context.Context, runnerName string, size int) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeDispatch, RunnerName: runnerName, Size: size})
}

// RecordResults queues a results event.
func (r *AsyncMetricRecorder) RecordResults(ctx context.Context, runnerName string, succeeded, failed int) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeResults, RunnerName: runnerName, Succeeded: succeeded, Failed: failed})
}

// RecordDuration queues a duration event.
func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags})
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

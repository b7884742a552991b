package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordRunStart does nothing.
func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {}

// RecordRunEnd does nothing.
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {}

// RecordDispatch does nothing.
func (r *NoOpMetricRecorder) RecordDispatch(ctx context.Context, runnerName string, size int) {}

// RecordResults does nothing.
func (r *NoOpMetricRecorder) RecordResults(ctx context.Context, runnerName string, succeeded, failed int) {
}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartRunSpan returns ctx unchanged.
func (t *NoOpTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)

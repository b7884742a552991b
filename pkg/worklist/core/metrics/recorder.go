package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// MetricRecorder is an abstract interface for recording worklist metrics.
//
// It decouples the runner and the dispatch use case from a concrete backend such as Prometheus.
type MetricRecorder interface {
	// RecordRunStart records that a runner started executing a batch.
	//
	// ctx: The context for the operation.
	// run: The started run.
	RecordRunStart(ctx context.Context, run *model.RunExecution)

	// RecordRunEnd records that a run finished and its delivery was decided.
	//
	// ctx: The context for the operation.
	// run: The finished run (Status and Delivery are final).
	RecordRunEnd(ctx context.Context, run *model.RunExecution)

	// RecordDispatch records the size of a dispatched batch.
	RecordDispatch(ctx context.Context, runnerName string, size int)

	// RecordResults records how many results of a batch were applied as success and failure.
	RecordResults(ctx context.Context, runnerName string, succeeded, failed int)

	// RecordDuration records an arbitrary duration.
	//
	// name: The name of the metric.
	// duration: The duration to record.
	// tags: Additional labels.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

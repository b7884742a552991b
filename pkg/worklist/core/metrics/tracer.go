package metrics

import (
	"context"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of runs.
type Tracer interface {
	// StartRunSpan starts a Span for a run.
	//
	// Returns: A context with the new Span set, and a function to end the Span.
	StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func())

	// RecordError records an error in the current Span.
	//
	// module: The component where the error occurred (e.g., "worker_runner").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current Span.
	//
	// attributes: Example: `map[string]interface{}{"row_id": "3", "status": "ok"}`
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}

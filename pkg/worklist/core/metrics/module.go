package metrics

import "go.uber.org/fx"

// Module provides no-op MetricRecorder and Tracer defaults.
// infrastructure/metrics.Module decorates them according to the metrics and tracing config.
var Module = fx.Provide(
	fx.Annotate(NewNoOpMetricRecorder, fx.As(new(MetricRecorder))),
	fx.Annotate(NewNoOpTracer, fx.As(new(Tracer))),
)

package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// DecorateMetricRecorder replaces the fallback recorder when metrics are enabled.
// The chosen backend is wrapped in an AsyncMetricRecorder that is drained on shutdown.
func DecorateMetricRecorder(lc fx.Lifecycle, cfg *config.Config, base metrics.MetricRecorder) (metrics.MetricRecorder, error) {
	mc := cfg.Worklist.Metrics
	if !mc.Enabled {
		return base, nil
	}

	var syncRecorder metrics.MetricRecorder
	switch mc.Exporter {
	case config.MetricsExporterOTLPHTTP, config.MetricsExporterOTLPGRPC:
		provider, err := NewMeterProvider(context.Background(), &mc, cfg.Worklist.Tracing.ServiceName)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return provider.Shutdown(ctx)
			},
		})
		rec, err := NewOTelMetricRecorder(provider)
		if err != nil {
			return nil, err
		}
		syncRecorder = rec
	default:
		syncRecorder = NewPrometheusRecorder()
	}

	bufferSize := mc.AsyncBufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}
	asyncRecorder := NewAsyncMetricRecorder(bufferSize, syncRecorder)
	// Hooks stop in reverse order, so the queue drains before the provider shuts down.
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			asyncRecorder.Close()
			return nil
		},
	})
	logger.Debugf("MetricRecorder decorated with asynchronous wrapper.")
	return asyncRecorder, nil
}

// DecorateTracer replaces the fallback tracer when a tracing exporter is configured.
func DecorateTracer(lc fx.Lifecycle, cfg *config.Config, base metrics.Tracer) (metrics.Tracer, error) {
	tc := cfg.Worklist.Tracing
	if tc.Exporter == "" || tc.Exporter == config.TracingExporterNone {
		return base, nil
	}
	provider, err := NewTracerProvider(context.Background(), &tc)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(provider)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return NewOpenTelemetryTracer(provider), nil
}

// Module decorates the fallbacks of core/metrics with the configured backends.
var Module = fx.Options(
	fx.Decorate(DecorateMetricRecorder),
	fx.Decorate(DecorateTracer),
)

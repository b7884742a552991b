package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	exception "github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

const instrumentationName = "github.com/tigerroll/worklist"

// OTelMetricRecorder records worklist metrics through an OpenTelemetry Meter.
type OTelMetricRecorder struct {
	runsStarted    otelmetric.Int64Counter
	runsFinished   otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
	dispatchedRows otelmetric.Int64Counter
	results        otelmetric.Int64Counter
	duration       otelmetric.Float64Histogram
}

// NewOTelMetricRecorder creates the instruments on a Meter of the given provider.
func NewOTelMetricRecorder(provider otelmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{}
	var err error

	if r.runsStarted, err = meter.Int64Counter("worklist.run.started",
		otelmetric.WithDescription("Number of started runs.")); err != nil {
		return nil, err
	}
	if r.runsFinished, err = meter.Int64Counter("worklist.run.finished",
		otelmetric.WithDescription("Number of finished runs by status and delivery.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("worklist.run.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Duration of worker runs.")); err != nil {
		return nil, err
	}
	if r.dispatchedRows, err = meter.Int64Counter("worklist.dispatch.rows",
		otelmetric.WithDescription("Rows handed to runners.")); err != nil {
		return nil, err
	}
	if r.results, err = meter.Int64Counter("worklist.results",
		otelmetric.WithDescription("Applied results by outcome.")); err != nil {
		return nil, err
	}
	if r.duration, err = meter.Float64Histogram("worklist.operation.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("Duration of named worklist operations.")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordRunStart counts a started run.
func (r *OTelMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runsStarted.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("runner", run.RunnerName)))
}

// RecordRunEnd records the final status, delivery and duration of a run.
func (r *OTelMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	attrs := otelmetric.WithAttributes(
		attribute.String("runner", run.RunnerName),
		attribute.String("status", string(run.Status)),
		attribute.String("delivery", string(run.Delivery)),
	)
	r.runsFinished.Add(ctx, 1, attrs)
	if run.EndTime != nil {
		r.runDuration.Record(ctx, run.Duration().Seconds(), attrs)
	}
}

// RecordDispatch adds the size of a dispatched batch.
func (r *OTelMetricRecorder) RecordDispatch(ctx context.Context, runnerName string, size int) {
	r.dispatchedRows.Add(ctx, int64(size), otelmetric.WithAttributes(attribute.String("runner", runnerName)))
}

// RecordResults adds applied successes and failures.
func (r *OTelMetricRecorder) RecordResults(ctx context.Context, runnerName string, succeeded, failed int) {
	r.results.Add(ctx, int64(succeeded), otelmetric.WithAttributes(
		attribute.String("runner", runnerName), attribute.String("outcome", "succeeded")))
	r.results.Add(ctx, int64(failed), otelmetric.WithAttributes(
		attribute.String("runner", runnerName), attribute.String("outcome", "failed")))
}

// RecordDuration records a named duration with its tags as attributes.
func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.duration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)

// NewMeterProvider builds an SDK MeterProvider that pushes to the OTLP endpoint named by cfg.
func NewMeterProvider(ctx context.Context, cfg *config.MetricsConfig, serviceName string) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter
	var err error

	switch cfg.Exporter {
	case config.MetricsExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	case config.MetricsExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, exception.NewWorklistError(exception.KindConfig, "metrics",
			fmt.Sprintf("exporter '%s' is not an OTLP exporter", cfg.Exporter), nil)
	}
	if err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, "metrics", "failed to create OTLP metric exporter", err)
	}

	logger.Infof("Metrics: OTLP exporter '%s' targeting %s.", cfg.Exporter, cfg.Endpoint)
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(newResource(serviceName)),
	), nil
}

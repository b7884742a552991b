package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	exception "github.com/tigerroll/worklist/pkg/worklist/support/util/exception"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// OpenTelemetryTracer records one span per run through an OpenTelemetry tracer.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer on the given provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	logger.Infof("Tracing: Initializing OpenTelemetry Tracer.")
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartRunSpan starts a span for a run. The returned function ends it.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "worklist.run", trace.WithAttributes(
		attribute.String("worklist.runner", run.RunnerName),
		attribute.String("worklist.run_id", run.ID),
		attribute.String("worklist.batch_id", run.BatchID),
		attribute.Int("worklist.batch_size", run.BatchSize),
	))
	logger.Debugf("Tracing: Started span for run %s.", run.ID)
	return ctx, func() { span.End() }
}

// RecordError marks the span in ctx as failed.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("worklist.module", module)))
	span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
}

// RecordEvent adds an event to the span in ctx.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, toAttribute(k, v))
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

func toAttribute(key string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case bool:
		return attribute.Bool(key, val)
	case float64:
		return attribute.Float64(key, val)
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)

// NewTracerProvider builds an SDK TracerProvider exporting to the endpoint named by cfg.
func NewTracerProvider(ctx context.Context, cfg *config.TracingConfig) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case config.TracingExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	case config.TracingExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, exception.NewWorklistError(exception.KindConfig, "tracing",
			fmt.Sprintf("exporter '%s' does not export spans", cfg.Exporter), nil)
	}
	if err != nil {
		return nil, exception.NewWorklistError(exception.KindConfig, "tracing", "failed to create OTLP trace exporter", err)
	}

	logger.Infof("Tracing: OTLP exporter '%s' targeting %s.", cfg.Exporter, cfg.Endpoint)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg.ServiceName)),
	), nil
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	metrics "github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Run Metrics
	runDurationSeconds *prometheus.HistogramVec
	runStatusCounter   *prometheus.CounterVec
	runsStarted        *prometheus.CounterVec

	// Row Metrics
	dispatchedRows *prometheus.CounterVec
	resultCounter  *prometheus.CounterVec

	durationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worklist_run_duration_seconds",
			Help:    "Duration of worker runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"runner", "status", "delivery"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklist_run_status_total",
			Help: "Total number of finished runs by status and delivery.",
		}, []string{"runner", "status", "delivery"}),
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklist_run_started_total",
			Help: "Total number of started runs.",
		}, []string{"runner"}),
		dispatchedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklist_dispatch_rows_total",
			Help: "Total rows handed to runners.",
		}, []string{"runner"}),
		resultCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worklist_results_total",
			Help: "Total applied results by outcome.",
		}, []string{"runner", "outcome"}),
		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worklist_operation_duration_seconds",
			Help:    "Duration of named worklist operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runStatusCounter,
		r.runsStarted,
		r.dispatchedRows,
		r.resultCounter,
		r.durationSeconds,
	)

	logger.Infof("Metrics: Prometheus recorder initialized.")
	return r
}

// GetRegistry returns the registry the recorder writes to, for exposition by the application.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart counts a started run.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.runsStarted.WithLabelValues(run.RunnerName).Inc()
}

// RecordRunEnd records the final status, delivery and duration of a run.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	status := string(run.Status)
	delivery := string(run.Delivery)
	r.runStatusCounter.WithLabelValues(run.RunnerName, status, delivery).Inc()
	if run.EndTime != nil {
		r.runDurationSeconds.WithLabelValues(run.RunnerName, status, delivery).Observe(run.Duration().Seconds())
	}
}

// RecordDispatch adds the size of a dispatched batch.
func (r *PrometheusRecorder) RecordDispatch(ctx context.Context, runnerName string, size int) {
	r.dispatchedRows.WithLabelValues(runnerName).Add(float64(size))
}

// RecordResults adds applied successes and failures.
func (r *PrometheusRecorder) RecordResults(ctx context.Context, runnerName string, succeeded, failed int) {
	r.resultCounter.WithLabelValues(runnerName, "succeeded").Add(float64(succeeded))
	r.resultCounter.WithLabelValues(runnerName, "failed").Add(float64(failed))
}

// RecordDuration observes a named duration. Tags are not used as labels to keep cardinality fixed.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.durationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

package metrics

import (
	"context"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/metrics"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
)

type MetricsRunListener struct {
	recorder metrics.MetricRecorder
}

func NewMetricsRunListener(recorder metrics.MetricRecorder) *MetricsRunListener {
	return &MetricsRunListener{recorder: recorder}
}

func (l *MetricsRunListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	l.recorder.RecordRunStart(ctx, run)
}

func (l *MetricsRunListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.recorder.RecordRunEnd(ctx, run)
}

var _ runner.RunListener = (*MetricsRunListener)(nil)

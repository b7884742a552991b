package logging

import (
	"context"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

type LoggingRunListener struct{}

func NewLoggingRunListener() *LoggingRunListener {
	return &LoggingRunListener{}
}

func (l *LoggingRunListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	logger.Infof("RunListener: BeforeRun - Runner: %s, ID: %s, Batch: %s (%d item(s))", run.RunnerName, run.ID, run.BatchID, run.BatchSize)
}

func (l *LoggingRunListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	if run.Status == model.RunStatusFailed {
		logger.Warnf("RunListener: AfterRun - Runner: %s, ID: %s, Status: %s, Delivery: %s, Duration: %s, Failure: %s",
			run.RunnerName, run.ID, run.Status, run.Delivery, run.Duration(), run.Failure)
		return
	}
	logger.Infof("RunListener: AfterRun - Runner: %s, ID: %s, Status: %s, Delivery: %s, Duration: %s",
		run.RunnerName, run.ID, run.Status, run.Delivery, run.Duration())
}

var _ runner.RunListener = (*LoggingRunListener)(nil)

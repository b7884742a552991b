// Package history records every run in a RunRepository.
package history

import (
	"context"

	model "github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/repository"
	"github.com/tigerroll/worklist/pkg/worklist/core/runner"
	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// HistoryRunListener saves a run when it starts and updates it when it ends.
// Repository failures are logged and never affect the run.
type HistoryRunListener struct {
	repo repository.RunRepository
}

// NewHistoryRunListener creates a listener writing to repo.
func NewHistoryRunListener(repo repository.RunRepository) *HistoryRunListener {
	return &HistoryRunListener{repo: repo}
}

// BeforeRun saves the STARTED run.
func (l *HistoryRunListener) BeforeRun(ctx context.Context, run *model.RunExecution) {
	if err := l.repo.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warnf("HistoryRunListener: failed to save run %s: %v", run.ID, err)
	}
}

// AfterRun stores the final status and delivery.
func (l *HistoryRunListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	if err := l.repo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warnf("HistoryRunListener: failed to update run %s: %v", run.ID, err)
	}
}

var _ runner.RunListener = (*HistoryRunListener)(nil)

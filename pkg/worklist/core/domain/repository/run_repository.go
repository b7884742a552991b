// Package repository defines the persistence port for runner execution history.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// ErrRunNotFound is returned when a RunExecution does not exist.
var ErrRunNotFound = errors.New("run execution not found")

// RunRepository stores RunExecution records. Implementations must be safe for concurrent use:
// run listeners call it from worker goroutines.
type RunRepository interface {
	// SaveRun persists a new RunExecution.
	SaveRun(ctx context.Context, run *model.RunExecution) error
	// UpdateRun updates an existing RunExecution.
	UpdateRun(ctx context.Context, run *model.RunExecution) error
	// FindRunByID finds a RunExecution by its ID. Returns ErrRunNotFound if absent.
	FindRunByID(ctx context.Context, id string) (*model.RunExecution, error)
	// FindRunsByRunner returns the runs of one runner, oldest first.
	FindRunsByRunner(ctx context.Context, runnerName string) ([]*model.RunExecution, error)
	// Close releases resources held by the repository.
	Close() error
}

// Package inmemory keeps run history in process memory.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/repository"
)

// InMemoryRunRepository is a RunRepository backed by a map. Records are copied in and out.
type InMemoryRunRepository struct {
	mu    sync.RWMutex
	runs  map[string]*model.RunExecution
	order []string
}

// NewInMemoryRunRepository creates an empty repository.
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{runs: make(map[string]*model.RunExecution)}
}

// SaveRun persists a new RunExecution.
// It returns an error if a RunExecution with the same ID already exists.
func (r *InMemoryRunRepository) SaveRun(ctx context.Context, run *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("RunExecution with ID %s already exists", run.ID)
	}
	r.runs[run.ID] = run.Copy()
	r.order = append(r.order, run.ID)
	return nil
}

// UpdateRun updates an existing RunExecution.
func (r *InMemoryRunRepository) UpdateRun(ctx context.Context, run *model.RunExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; !exists {
		return fmt.Errorf("RunExecution with ID %s not found for update: %w", run.ID, repository.ErrRunNotFound)
	}
	r.runs[run.ID] = run.Copy()
	return nil
}

// FindRunByID returns a copy of the stored run.
func (r *InMemoryRunRepository) FindRunByID(ctx context.Context, id string) (*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	return run.Copy(), nil
}

// FindRunsByRunner returns the runs of one runner in the order they were saved.
func (r *InMemoryRunRepository) FindRunsByRunner(ctx context.Context, runnerName string) ([]*model.RunExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.RunExecution
	for _, id := range r.order {
		if run := r.runs[id]; run.RunnerName == runnerName {
			result = append(result, run.Copy())
		}
	}
	return result, nil
}

// Close is a no-op.
func (r *InMemoryRunRepository) Close() error {
	return nil
}

var _ repository.RunRepository = (*InMemoryRunRepository)(nil)

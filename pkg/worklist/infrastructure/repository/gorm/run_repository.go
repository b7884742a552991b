// Package gorm stores run history in a relational database through GORM.
package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
	"github.com/tigerroll/worklist/pkg/worklist/core/domain/repository"
	"github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// GormRunRepository is a RunRepository backed by a GORM connection.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository returns a repository over db. The schema must already exist; see Migrate.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	logger.Debugf("GormRunRepository: using table %s.", RunExecutionEntity{}.TableName())
	return &GormRunRepository{db: db}
}

// SaveRun inserts a new RunExecution.
func (r *GormRunRepository) SaveRun(ctx context.Context, run *model.RunExecution) error {
	if err := r.db.WithContext(ctx).Create(fromDomainRun(run)).Error; err != nil {
		return fmt.Errorf("failed to save RunExecution %s: %w", run.ID, err)
	}
	return nil
}

// UpdateRun overwrites an existing RunExecution.
func (r *GormRunRepository) UpdateRun(ctx context.Context, run *model.RunExecution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RunExecutionEntity
		if err := tx.Select("id").First(&existing, "id = ?", run.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("RunExecution with ID %s not found for update: %w", run.ID, repository.ErrRunNotFound)
			}
			return err
		}
		if err := tx.Save(fromDomainRun(run)).Error; err != nil {
			return fmt.Errorf("failed to update RunExecution %s: %w", run.ID, err)
		}
		return nil
	})
}

// FindRunByID loads one run.
func (r *GormRunRepository) FindRunByID(ctx context.Context, id string) (*model.RunExecution, error) {
	var entity RunExecutionEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRunNotFound
		}
		return nil, err
	}
	return toDomainRun(&entity), nil
}

// FindRunsByRunner returns the runs of one runner ordered by start time.
func (r *GormRunRepository) FindRunsByRunner(ctx context.Context, runnerName string) ([]*model.RunExecution, error) {
	var entities []RunExecutionEntity
	if err := r.db.WithContext(ctx).
		Where("runner_name = ?", runnerName).
		Order("start_time ASC").
		Find(&entities).Error; err != nil {
		return nil, err
	}
	runs := make([]*model.RunExecution, len(entities))
	for i := range entities {
		runs[i] = toDomainRun(&entities[i])
	}
	return runs, nil
}

// Close closes the underlying connection pool.
func (r *GormRunRepository) Close() error {
	return gormadapter.Close(r.db)
}

var _ repository.RunRepository = (*GormRunRepository)(nil)

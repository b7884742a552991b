package gorm

import (
	"time"

	"github.com/tigerroll/worklist/pkg/worklist/core/domain/model"
)

// RunExecutionEntity is the persisted form of a RunExecution.
type RunExecutionEntity struct {
	ID         string `gorm:"primaryKey;size:64"`
	RunnerName string `gorm:"size:255;index"`
	BatchID    string `gorm:"size:64"`
	BatchSize  int
	Status     model.RunStatus `gorm:"size:32"`
	Delivery   model.Delivery  `gorm:"size:32"`
	StartTime  time.Time       `gorm:"index"`
	EndTime    *time.Time
	ErrorCode  *int
	Failure    string `gorm:"type:text"`
}

func (RunExecutionEntity) TableName() string {
	return "worklist_run_execution"
}

func fromDomainRun(r *model.RunExecution) *RunExecutionEntity {
	c := r.Copy()
	return &RunExecutionEntity{
		ID:         c.ID,
		RunnerName: c.RunnerName,
		BatchID:    c.BatchID,
		BatchSize:  c.BatchSize,
		Status:     c.Status,
		Delivery:   c.Delivery,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		ErrorCode:  c.ErrorCode,
		Failure:    c.Failure,
	}
}

func toDomainRun(e *RunExecutionEntity) *model.RunExecution {
	return &model.RunExecution{
		ID:         e.ID,
		RunnerName: e.RunnerName,
		BatchID:    e.BatchID,
		BatchSize:  e.BatchSize,
		Status:     e.Status,
		Delivery:   e.Delivery,
		StartTime:  e.StartTime,
		EndTime:    e.EndTime,
		ErrorCode:  e.ErrorCode,
		Failure:    e.Failure,
	}
}

package model

import (
	"fmt"
	"time"

	logger "github.com/tigerroll/worklist/pkg/worklist/support/util/logger"
)

// RunStatus represents the state of one WorkerRunner execution.
type RunStatus string

const (
	RunStatusStarted   RunStatus = "STARTED"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished reports whether the run has ended.
func (s RunStatus) IsFinished() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Delivery tells whether a run's terminal callback reached the owning loop.
type Delivery string

const (
	DeliveryPending   Delivery = "PENDING"
	DeliveryDelivered Delivery = "DELIVERED"
	// DeliveryDiscarded means a later Start on the same runner detached this run's callback.
	DeliveryDiscarded Delivery = "DISCARDED"
)

// RunExecution records one WorkerRunner execution.
type RunExecution struct {
	ID         string
	RunnerName string
	BatchID    string
	BatchSize  int
	Status     RunStatus
	Delivery   Delivery
	StartTime  time.Time
	EndTime    *time.Time
	ErrorCode  *int
	Failure    string
}

// NewRunExecution creates a STARTED run record.
func NewRunExecution(runnerName, batchID string, batchSize int) *RunExecution {
	return &RunExecution{
		ID:         NewID(),
		RunnerName: runnerName,
		BatchID:    batchID,
		BatchSize:  batchSize,
		Status:     RunStatusStarted,
		Delivery:   DeliveryPending,
		StartTime:  time.Now(),
	}
}

func isValidRunTransition(current, next RunStatus) bool {
	return current == RunStatusStarted && next.IsFinished()
}

// TransitionTo safely transitions the run status.
func (r *RunExecution) TransitionTo(next RunStatus) error {
	if !isValidRunTransition(r.Status, next) {
		return fmt.Errorf("RunExecution (ID: %s): invalid state transition: %s -> %s", r.ID, r.Status, next)
	}
	r.Status = next
	return nil
}

// MarkAsCompleted updates the run status to COMPLETED.
func (r *RunExecution) MarkAsCompleted() {
	if err := r.TransitionTo(RunStatusCompleted); err != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to COMPLETED: %v", r.ID, err)
		return
	}
	now := time.Now()
	r.EndTime = &now
}

// MarkAsFailed updates the run status to FAILED and records the failure message.
func (r *RunExecution) MarkAsFailed(err error) {
	if tErr := r.TransitionTo(RunStatusFailed); tErr != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to FAILED: %v", r.ID, tErr)
		return
	}
	now := time.Now()
	r.EndTime = &now
	if err != nil {
		r.Failure = err.Error()
	}
}

// Duration returns the elapsed run time, or zero while the run is active.
func (r *RunExecution) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Copy returns a copy safe to hand to another goroutine.
func (r *RunExecution) Copy() *RunExecution {
	c := *r
	if r.EndTime != nil {
		t := *r.EndTime
		c.EndTime = &t
	}
	if r.ErrorCode != nil {
		code := *r.ErrorCode
		c.ErrorCode = &code
	}
	return &c
}

// Package model holds the data types shared by the worklist table, tracker and runner.
package model

import (
	"fmt"
	"strconv"
)

// StableID identifies a row for its whole lifetime. It is assigned at insertion,
// never reused, and independent of the row's current position.
type StableID uint64

// String returns the decimal form of the ID.
func (id StableID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// RowState is the work state of a row.
type RowState string

const (
	RowStateIdle       RowState = "IDLE"
	RowStateDispatched RowState = "DISPATCHED"
	RowStateSucceeded  RowState = "SUCCEEDED"
	RowStateFailed     RowState = "FAILED"
)

// String returns the string representation of the RowState.
func (s RowState) String() string {
	return string(s)
}

// IsFinished reports whether the state is a result state.
func (s RowState) IsFinished() bool {
	return s == RowStateSucceeded || s == RowStateFailed
}

// isValidRowTransition checks a row state transition.
// Purged is not a state: a purged row no longer exists.
func isValidRowTransition(current, next RowState) bool {
	switch current {
	case RowStateIdle:
		return next == RowStateDispatched
	case RowStateDispatched:
		// A newer batch may pick up a row that is still in flight.
		return next == RowStateSucceeded || next == RowStateFailed || next == RowStateDispatched || next == RowStateIdle
	case RowStateSucceeded, RowStateFailed:
		// Re-dispatch; Succeeded rows stay eligible when disable-on-success is off.
		return next == RowStateDispatched
	default:
		return false
	}
}

// Row is one unit in the table.
// Checked is only meaningful while Selectable is true.
type Row struct {
	ID         StableID
	Columns    []string
	Checked    bool
	Selectable bool
	Payload    any
	Status     string
	State      RowState
}

// EffectivelyChecked reports whether bulk queries and dispatch treat the row as checked.
func (r *Row) EffectivelyChecked() bool {
	return r.Checked && r.Selectable
}

// Succeeded reports whether the row's last applied result was a success.
func (r *Row) Succeeded() bool {
	return r.State == RowStateSucceeded
}

// TransitionTo changes the row state if the transition is valid.
func (r *Row) TransitionTo(next RowState) error {
	if r.State == "" {
		r.State = RowStateIdle
	}
	if !isValidRowTransition(r.State, next) {
		return fmt.Errorf("row (ID: %s): invalid state transition: %s -> %s", r.ID, r.State, next)
	}
	r.State = next
	return nil
}

// Clone returns a copy of the row whose Columns slice is not shared.
func (r Row) Clone() Row {
	c := r
	c.Columns = append([]string(nil), r.Columns...)
	return c
}

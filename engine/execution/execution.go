// Package execution models the Execution aggregate and the per-node
// ExecutionInput/ExecutionOutput records that flow through the scheduler,
// worker, and collector loops.
package execution

import (
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Status is the lifecycle state of an Execution.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusTimeout   Status = "TIMEOUT"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// IsTerminal reports whether s is a final Execution status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimeout:
		return true
	}
	return false
}

// NodeResult is one entry of Execution.Results, the aggregate written by the
// finalizer (C11).
type NodeResult struct {
	Status       string         `json:"status"`
	ResultData   map[string]any `json:"result_data,omitempty"`
	Duration     time.Duration  `json:"duration"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}

// Execution is one run of a Workflow (EXC-).
type Execution struct {
	ID          core.ID
	WorkspaceID core.ID
	WorkflowID  core.ID
	TriggerID   core.ID // zero if manually started without a trigger
	Status      Status
	TriggerData map[string]any
	Results     map[string]NodeResult
	Deadline    time.Time
	CancelledAt *time.Time
	StartedAt   *time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a PENDING Execution awaiting planning by C8.
func New(workspaceID, workflowID, triggerID core.ID, triggerData map[string]any, deadline time.Duration) (*Execution, error) {
	id, err := core.NewID(core.PrefixExecution)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Execution{
		ID:          id,
		WorkspaceID: workspaceID,
		WorkflowID:  workflowID,
		TriggerID:   triggerID,
		Status:      StatusPending,
		TriggerData: triggerData,
		Results:     map[string]NodeResult{},
		Deadline:    now.Add(deadline),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkRunning transitions PENDING -> RUNNING, recording StartedAt. Called by
// the planner (C8) once ExecutionInputs have been materialized.
func (e *Execution) MarkRunning() {
	now := time.Now().UTC()
	e.Status = StatusRunning
	e.StartedAt = &now
	e.UpdatedAt = now
}

// Cancel sets the cancellation marker read by the scheduler and collector
// loops. The Execution only reaches the terminal CANCELLED status once the
// finalizer observes the marker and no in-flight dispatch remains.
func (e *Execution) Cancel() {
	if e.CancelledAt != nil {
		return
	}
	now := time.Now().UTC()
	e.CancelledAt = &now
	e.UpdatedAt = now
}

// IsCancelled reports whether Cancel has been called.
func (e *Execution) IsCancelled() bool {
	return e.CancelledAt != nil
}

// IsPastDeadline reports whether the execution-level timeout has elapsed.
func (e *Execution) IsPastDeadline(now time.Time) bool {
	return now.After(e.Deadline)
}

// Finalize closes the execution with the given terminal status and result
// aggregate (C11 step 1/3).
func (e *Execution) Finalize(status Status, results map[string]NodeResult) error {
	if !status.IsTerminal() {
		return core.NewError(nil, core.CodeBusinessRule, map[string]any{"status": string(status)})
	}
	now := time.Now().UTC()
	e.Status = status
	e.Results = results
	e.EndedAt = &now
	e.UpdatedAt = now
	return nil
}

// Duration returns the wall-clock run time, or zero if not yet started.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	return end.Sub(*e.StartedAt)
}

// Package workflow models the Workflow entity and its state machine (C6):
// DRAFT<->ACTIVE<->DEACTIVATED->ARCHIVED, with trigger-enable/disable
// cascades on activate/deactivate.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Status is one of the four lifecycle states a Workflow can be in.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusActive      Status = "ACTIVE"
	StatusDeactivated Status = "DEACTIVATED"
	StatusArchived    Status = "ARCHIVED"
)

// IsValid reports whether s names a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusDeactivated, StatusArchived:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the documented state machine allows a
// transition from s to target:
//
//	DRAFT ──activate──▶ ACTIVE ──deactivate──▶ DEACTIVATED ──archive──▶ ARCHIVED
//	  ▲                                            │
//	  └───────────────── set_draft ────────────────┘
//
// ARCHIVED is terminal: no transition leaves it.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusActive
	case StatusActive:
		return target == StatusDeactivated
	case StatusDeactivated:
		return target == StatusDraft || target == StatusArchived
	case StatusArchived:
		return false
	default:
		return false
	}
}

// Workflow is a named, ordered DAG of Nodes and Edges within a Workspace
// (WFL-).
type Workflow struct {
	ID          core.ID
	WorkspaceID core.ID
	Name        string
	Status      Status
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// New creates a Workflow in DRAFT with the given priority (minimum 1).
func New(workspaceID core.ID, name string, priority int) (*Workflow, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("workflow name cannot be empty")
	}
	if priority < 1 {
		return nil, fmt.Errorf("priority must be >= 1")
	}
	id, err := core.NewID(core.PrefixWorkflow)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	now := time.Now().UTC()
	return &Workflow{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		Status:      StatusDraft,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanRun reports the run gate referenced by the trigger validator (C7):
// the workflow must be ACTIVE (the trigger's own is_enabled flag is checked
// separately).
func (w *Workflow) CanRun() bool {
	return w.Status == StatusActive
}

package workflow

import (
	"context"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
)

// NodeCounter reports how many Nodes currently belong to a workflow, used to
// enforce "ACTIVE requires >= 1 Node".
type NodeCounter interface {
	CountNodes(ctx context.Context, workflowID core.ID) (int, error)
}

// TriggerCascade flips every trigger's is_enabled flag on activate/deactivate.
type TriggerCascade interface {
	EnableAllTriggers(ctx context.Context, workflowID core.ID) error
	DisableAllTriggers(ctx context.Context, workflowID core.ID) error
}

// StateMachine drives Workflow.Status transitions and their trigger cascade
// side effects (C6).
type StateMachine struct {
	nodes    NodeCounter
	triggers TriggerCascade
}

// NewStateMachine builds a StateMachine.
func NewStateMachine(nodes NodeCounter, triggers TriggerCascade) *StateMachine {
	return &StateMachine{nodes: nodes, triggers: triggers}
}

func transitionError(from, to Status) error {
	return core.NewError(
		fmt.Errorf("cannot transition workflow from %s to %s", from, to),
		core.CodeBusinessRule,
		map[string]any{"from": string(from), "to": string(to)},
	)
}

// Activate moves w from DRAFT to ACTIVE, requiring at least one Node, and
// enables every trigger on the workflow.
func (m *StateMachine) Activate(ctx context.Context, w *Workflow) error {
	if !w.Status.CanTransitionTo(StatusActive) {
		return transitionError(w.Status, StatusActive)
	}
	count, err := m.nodes.CountNodes(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("workflow state machine: count nodes: %w", err)
	}
	if count < 1 {
		return core.NewError(
			fmt.Errorf("workflow %s has no nodes", w.ID),
			core.CodeBusinessRule,
			map[string]any{"workflow_id": w.ID.String()},
		)
	}
	if err := m.triggers.EnableAllTriggers(ctx, w.ID); err != nil {
		return fmt.Errorf("workflow state machine: enable triggers: %w", err)
	}
	w.Status = StatusActive
	return nil
}

// Deactivate moves w from ACTIVE to DEACTIVATED and disables every trigger.
func (m *StateMachine) Deactivate(ctx context.Context, w *Workflow) error {
	if !w.Status.CanTransitionTo(StatusDeactivated) {
		return transitionError(w.Status, StatusDeactivated)
	}
	if err := m.triggers.DisableAllTriggers(ctx, w.ID); err != nil {
		return fmt.Errorf("workflow state machine: disable triggers: %w", err)
	}
	w.Status = StatusDeactivated
	return nil
}

// SetDraft moves w from DEACTIVATED back to DRAFT.
func (m *StateMachine) SetDraft(_ context.Context, w *Workflow) error {
	if !w.Status.CanTransitionTo(StatusDraft) {
		return transitionError(w.Status, StatusDraft)
	}
	w.Status = StatusDraft
	return nil
}

// Archive moves w from DEACTIVATED to ARCHIVED. This is terminal.
func (m *StateMachine) Archive(_ context.Context, w *Workflow) error {
	if !w.Status.CanTransitionTo(StatusArchived) {
		return transitionError(w.Status, StatusArchived)
	}
	w.Status = StatusArchived
	return nil
}

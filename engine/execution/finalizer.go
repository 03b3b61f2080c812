package execution

import (
	"context"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// PlanSnapshot is the store-side view a Finalizer needs: which nodes were
// planned, and which ones have a terminal Output already.
type PlanSnapshot struct {
	PlannedNodeIDs []core.ID
	Outputs        map[core.ID]*Output // keyed by node id
	Unreachable    map[core.ID]bool    // nodes whose upstream dependency failed
}

// Store is the persistence boundary the finalizer needs to close out an
// Execution (delete remaining Inputs/Outputs, persist the terminal status).
type Store interface {
	LoadPlanSnapshot(ctx context.Context, executionID core.ID) (*PlanSnapshot, error)
	SaveExecution(ctx context.Context, e *Execution) error
	DeleteInputsAndOutputs(ctx context.Context, executionID core.ID) error
	EmitTerminalEvent(ctx context.Context, e *Execution) error
}

// Finalizer implements C11: decides whether an Execution is terminal and, if
// so, aggregates results and closes it out.
type Finalizer struct {
	store Store
}

func NewFinalizer(store Store) *Finalizer {
	return &Finalizer{store: store}
}

// Evaluate checks the terminal conditions and, if any apply, finalizes e.
// Returns true if a finalization occurred.
func (f *Finalizer) Evaluate(ctx context.Context, e *Execution) (bool, error) {
	now := time.Now().UTC()

	if e.IsCancelled() {
		return true, f.finalize(ctx, e, StatusCancelled, map[string]NodeResult{})
	}
	if e.IsPastDeadline(now) {
		return true, f.finalize(ctx, e, StatusTimeout, map[string]NodeResult{})
	}

	snapshot, err := f.store.LoadPlanSnapshot(ctx, e.ID)
	if err != nil {
		return false, err
	}

	results := make(map[string]NodeResult, len(snapshot.PlannedNodeIDs))
	allResolved := true
	anySuccessMissing := false
	for _, nodeID := range snapshot.PlannedNodeIDs {
		if out, ok := snapshot.Outputs[nodeID]; ok {
			results[string(nodeID)] = out.ToNodeResult()
			continue
		}
		if snapshot.Unreachable[nodeID] {
			results[string(nodeID)] = NodeResult{Status: string(OutputFailed), ErrorMessage: "unreachable: upstream dependency failed"}
			continue
		}
		allResolved = false
	}
	if !allResolved {
		return false, nil
	}

	finalStatus := StatusCompleted
	for _, r := range results {
		if r.Status != string(OutputSuccess) {
			anySuccessMissing = true
			break
		}
	}
	if anySuccessMissing {
		finalStatus = StatusFailed
	}
	return true, f.finalize(ctx, e, finalStatus, results)
}

func (f *Finalizer) finalize(ctx context.Context, e *Execution, status Status, results map[string]NodeResult) error {
	if err := e.Finalize(status, results); err != nil {
		return err
	}
	if err := f.store.SaveExecution(ctx, e); err != nil {
		return err
	}
	if err := f.store.DeleteInputsAndOutputs(ctx, e.ID); err != nil {
		return err
	}
	return f.store.EmitTerminalEvent(ctx, e)
}

package execution

import (
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// InputStatus is the dispatch lifecycle of an ExecutionInput.
type InputStatus string

const (
	InputWaiting  InputStatus = "WAITING"
	InputReady    InputStatus = "READY"
	InputInFlight InputStatus = "IN_FLIGHT"
)

// Input is an immutable per-node snapshot created by the planner (C8),
// carrying everything the worker boundary needs without re-reading Node or
// Script (EXI-).
type Input struct {
	ID               core.ID
	ExecutionID      core.ID
	NodeID           core.ID
	NodeName         string
	ScriptName       string
	ScriptPath       string
	Params           map[string]any // verbatim, still reference-bearing
	Priority         int
	DependencyCount  int
	MaxRetries       int
	TimeoutSeconds   int
	Status           InputStatus
	ClaimedAt        *time.Time
	CreatedAt        time.Time
}

// NewInput creates an Input in WAITING or READY state depending on
// dependencyCount.
func NewInput(executionID, nodeID core.ID, nodeName, scriptName, scriptPath string, params map[string]any, priority, dependencyCount, maxRetries, timeoutSeconds int) (*Input, error) {
	if dependencyCount < 0 {
		return nil, fmt.Errorf("dependency_count must be >= 0, got %d", dependencyCount)
	}
	id, err := core.NewID(core.PrefixExecInput)
	if err != nil {
		return nil, err
	}
	status := InputReady
	if dependencyCount > 0 {
		status = InputWaiting
	}
	return &Input{
		ID:              id,
		ExecutionID:     executionID,
		NodeID:          nodeID,
		NodeName:        nodeName,
		ScriptName:      scriptName,
		ScriptPath:      scriptPath,
		Params:          params,
		Priority:        priority,
		DependencyCount: dependencyCount,
		MaxRetries:      maxRetries,
		TimeoutSeconds:  timeoutSeconds,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// DecrementDependency releases one resolved ancestor; becomes READY once the
// count reaches zero (C10 step 2).
func (i *Input) DecrementDependency() {
	if i.DependencyCount <= 0 {
		return
	}
	i.DependencyCount--
	if i.DependencyCount == 0 && i.Status == InputWaiting {
		i.Status = InputReady
	}
}

// IsClaimable reports whether a scheduler loop (C9) may claim this input.
func (i *Input) IsClaimable() bool {
	return i.Status == InputReady && i.DependencyCount == 0
}

// Claim transitions READY -> IN_FLIGHT.
func (i *Input) Claim() {
	now := time.Now().UTC()
	i.Status = InputInFlight
	i.ClaimedAt = &now
}

// DispatchRecord is the worker-runtime boundary payload (C9 -> worker).
type DispatchRecord struct {
	ExecutionID    core.ID        `json:"execution_id"`
	WorkspaceID    core.ID        `json:"workspace_id"`
	WorkflowID     core.ID        `json:"workflow_id"`
	NodeID         core.ID        `json:"node_id"`
	ScriptPath     string         `json:"script_path"`
	ProcessType    string         `json:"process_type"`
	Params         map[string]any `json:"params"`
	MaxRetries     int            `json:"max_retries"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// ToDispatchRecord builds the wire payload sent to the worker runtime.
func (i *Input) ToDispatchRecord(workspaceID, workflowID core.ID, resolvedParams map[string]any, processType string) DispatchRecord {
	return DispatchRecord{
		ExecutionID:    i.ExecutionID,
		WorkspaceID:    workspaceID,
		WorkflowID:     workflowID,
		NodeID:         i.NodeID,
		ScriptPath:     i.ScriptPath,
		ProcessType:    processType,
		Params:         resolvedParams,
		MaxRetries:     i.MaxRetries,
		TimeoutSeconds: i.TimeoutSeconds,
	}
}

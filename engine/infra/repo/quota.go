package repo

import (
	"context"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/infra/postgres"
	"github.com/miniflow/miniflow/engine/workspace"
)

// concurrentExecutionCounter adapts ExecutionRepo's non-terminal execution
// count into workspace.CounterReader, the only resource the quota
// accountant is exercised against outside its own unit tests today.
type concurrentExecutionCounter struct {
	executions *postgres.ExecutionRepo
}

func (c concurrentExecutionCounter) Counter(
	ctx context.Context, workspaceID core.ID, resource workspace.Resource,
) (int64, error) {
	if resource != workspace.ResourceConcurrentExecution {
		return 0, nil
	}
	return c.executions.CountConcurrent(ctx, workspaceID)
}

// NewQuotaAccountant builds C4's accountant backed by executions' live
// concurrent-execution count.
func NewQuotaAccountant(executions *postgres.ExecutionRepo) *workspace.Accountant {
	return workspace.NewAccountant(concurrentExecutionCounter{executions: executions})
}

package workspace

import (
	"context"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/plan"
)

// Resource enumerates the quantities the quota accountant (C4) gates.
type Resource string

const (
	ResourceMember               Resource = "members"
	ResourceWorkflow              Resource = "workflows"
	ResourceCustomScript          Resource = "custom_scripts"
	ResourceStorageBytes          Resource = "storage_bytes"
	ResourceAPIKey                Resource = "api_keys"
	ResourceMonthlyExecution      Resource = "monthly_executions"
	ResourceConcurrentExecution   Resource = "concurrent_executions"
)

// CounterReader exposes the transactionally-consistent counters a quota
// check compares against plan limits. Implementations are expected to read
// under the same row lock that will be held while the create is performed,
// so concurrent creators race against the same counter and the loser
// retries the check.
type CounterReader interface {
	Counter(ctx context.Context, workspaceID core.ID, resource Resource) (current int64, err error)
}

// Accountant answers quota and feature-flag questions for a workspace,
// implementing C4.
type Accountant struct {
	counters CounterReader
}

// NewAccountant builds an Accountant backed by counters.
func NewAccountant(counters CounterReader) *Accountant {
	return &Accountant{counters: counters}
}

func limitFor(limits plan.Limits, resource Resource) int64 {
	switch resource {
	case ResourceMember:
		return int64(limits.MaxMembers)
	case ResourceWorkflow:
		return int64(limits.MaxWorkflows)
	case ResourceCustomScript:
		return int64(limits.MaxCustomScripts)
	case ResourceStorageBytes:
		return limits.MaxStorageBytes
	case ResourceAPIKey:
		return int64(limits.MaxAPIKeys)
	case ResourceMonthlyExecution:
		return int64(limits.MaxMonthlyExecutions)
	case ResourceConcurrentExecution:
		return int64(limits.MaxConcurrentExecutions)
	default:
		return 0
	}
}

// CheckCreate verifies that creating one more unit of resource (or, for
// byte-counted resources, `amount` additional bytes) would not exceed the
// workspace's plan limit. It fails with core.CodeQuotaExceeded and a
// {resource, current, limit} detail map on violation.
func (a *Accountant) CheckCreate(ctx context.Context, ws *Workspace, resource Resource, amount int64) error {
	p, ok := plan.Get(ws.Plan)
	if !ok {
		return fmt.Errorf("workspace %s has unknown plan %q", ws.ID, ws.Plan)
	}
	limit := limitFor(p.Limits, resource)
	if plan.Unlimited(limit) {
		return nil
	}
	current, err := a.counters.Counter(ctx, ws.ID, resource)
	if err != nil {
		return fmt.Errorf("quota: read counter: %w", err)
	}
	if current+amount > limit {
		return core.NewError(
			fmt.Errorf("workspace %s would exceed its %s limit", ws.ID, resource),
			core.CodeQuotaExceeded,
			map[string]any{"resource": string(resource), "current": current, "limit": limit},
		)
	}
	return nil
}

// CheckFeature reports whether ws's plan grants feature f.
func (a *Accountant) CheckFeature(ws *Workspace, f plan.Feature) error {
	p, ok := plan.Get(ws.Plan)
	if !ok {
		return fmt.Errorf("workspace %s has unknown plan %q", ws.ID, ws.Plan)
	}
	if !p.HasFeature(f) {
		return core.NewError(
			fmt.Errorf("feature %s is not available on the %s plan", f, ws.Plan),
			core.CodeForbidden,
			map[string]any{"feature": string(f), "plan": string(ws.Plan)},
		)
	}
	return nil
}

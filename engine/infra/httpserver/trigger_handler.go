package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miniflow/miniflow/engine/auth"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/infra/cache"
	"github.com/miniflow/miniflow/engine/store"
	"github.com/miniflow/miniflow/engine/trigger"
	"github.com/miniflow/miniflow/engine/workspace"
	"github.com/miniflow/miniflow/pkg/logger"
)

// defaultExecutionDeadline bounds an Execution when the firing request does
// not override it; C11's Finalizer times out anything still running past
// this.
const defaultExecutionDeadline = time.Hour

// fireLockTTL bounds how long a trigger stays locked against a concurrent
// duplicate fire (e.g. two webhook deliveries racing for the same event).
const fireLockTTL = 10 * time.Second

// fireLockResource is the distributed lock key namespace for in-flight fires.
const fireLockResource = "trigger-fire:"

// workflowGate adapts store.Workflows into trigger.WorkflowGate.
type workflowGate struct {
	workflows store.Workflows
}

func (g workflowGate) CanRun(ctx context.Context, workflowID core.ID) (bool, error) {
	wf, err := g.workflows.Get(ctx, workflowID)
	if err != nil {
		return false, err
	}
	return wf.CanRun(), nil
}

// TriggerHandler implements the webhook/manual trigger intake surface
// (C7 -> C8): it admits a payload through the Validator, checks C4's
// concurrent-execution quota, opens an Execution, and hands it to the
// Planner to materialize its first wave of Inputs.
type TriggerHandler struct {
	triggers   store.Triggers
	workflows  store.Workflows
	workspaces store.Workspaces
	validator  *trigger.Validator
	quota      *workspace.Accountant
	locks      cache.LockManager
	planner    *execution.Planner
}

// NewTriggerHandler wires the trigger-intake boundary. quota is optional: a
// nil Accountant skips the concurrent-execution check entirely (matching the
// open-by-default shape the quickstart command runs with). locks is
// optional too: a nil LockManager skips the duplicate-fire guard, which is
// the shape the quickstart command and Redis-less deployments run with.
func NewTriggerHandler(
	triggers store.Triggers,
	workflows store.Workflows,
	workspaces store.Workspaces,
	quota *workspace.Accountant,
	locks cache.LockManager,
	planner *execution.Planner,
) *TriggerHandler {
	return &TriggerHandler{
		triggers:   triggers,
		workflows:  workflows,
		workspaces: workspaces,
		validator:  trigger.NewValidator(workflowGate{workflows: workflows}),
		quota:      quota,
		locks:      locks,
		planner:    planner,
	}
}

// fireRequest is the intake payload; an empty body is valid for triggers
// with no required input_mapping fields.
type fireRequest struct {
	Payload map[string]any `json:"payload"`
}

type fireResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// Fire handles POST /v1/triggers/:trigger_id/fire.
func (h *TriggerHandler) Fire(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	triggerID, err := core.ParseID(core.PrefixTrigger, c.Param("trigger_id"))
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeInvalidInput, nil))
		return
	}

	t, err := h.triggers.Get(ctx, triggerID)
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeNotFound, nil))
		return
	}

	if h.locks != nil {
		lock, err := h.locks.Acquire(ctx, fireLockResource+triggerID.String(), fireLockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				auth.SendError(c, core.NewError(err, core.CodeAlreadyExists, nil))
				return
			}
			auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
			return
		}
		defer func() {
			if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil {
				log.With("error", rerr, "trigger_id", triggerID).Warn("failed to release fire lock")
			}
		}()
	}

	var req fireRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			auth.SendError(c, core.NewError(err, core.CodeInvalidInput, nil))
			return
		}
	}

	coerced, err := h.validator.Validate(ctx, t, req.Payload)
	if err != nil {
		if coreErr, ok := err.(*core.Error); ok {
			auth.SendError(c, coreErr)
			return
		}
		auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
		return
	}

	wf, err := h.workflows.Get(ctx, t.WorkflowID)
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
		return
	}
	if h.quota != nil {
		ws, err := h.workspaces.Get(ctx, wf.WorkspaceID)
		if err != nil {
			auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
			return
		}
		if err := h.quota.CheckCreate(ctx, ws, workspace.ResourceConcurrentExecution, 1); err != nil {
			if coreErr, ok := err.(*core.Error); ok {
				auth.SendError(c, coreErr)
				return
			}
			auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
			return
		}
	}

	e, err := execution.New(wf.WorkspaceID, t.WorkflowID, t.ID, coerced, defaultExecutionDeadline)
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
		return
	}
	if err := h.planner.Plan(ctx, e); err != nil {
		log.With("error", err, "workflow_id", t.WorkflowID).Error("failed to plan execution")
		auth.SendError(c, core.NewError(err, core.CodeInternal, nil))
		return
	}

	c.JSON(http.StatusAccepted, fireResponse{ExecutionID: e.ID.String(), Status: string(e.Status)})
}

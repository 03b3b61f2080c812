package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miniflow/miniflow/engine/auth"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
)

// ExecutionReader is the read-side boundary the status endpoint needs.
type ExecutionReader interface {
	LoadExecution(ctx context.Context, executionID core.ID) (*execution.Execution, error)
}

// ExecutionHandler exposes read-only execution status, the worker-boundary
// counterpart to TriggerHandler's intake.
type ExecutionHandler struct {
	executions ExecutionReader
}

func NewExecutionHandler(executions ExecutionReader) *ExecutionHandler {
	return &ExecutionHandler{executions: executions}
}

type executionResponse struct {
	ID         string                          `json:"id"`
	WorkflowID string                          `json:"workflow_id"`
	Status     string                          `json:"status"`
	Results    map[string]execution.NodeResult `json:"results,omitempty"`
}

// Get handles GET /v1/executions/:execution_id.
func (h *ExecutionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	executionID, err := core.ParseID(core.PrefixExecution, c.Param("execution_id"))
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeInvalidInput, nil))
		return
	}
	e, err := h.executions.LoadExecution(ctx, executionID)
	if err != nil {
		auth.SendError(c, core.NewError(err, core.CodeNotFound, nil))
		return
	}
	c.JSON(http.StatusOK, executionResponse{
		ID:         e.ID.String(),
		WorkflowID: e.WorkflowID.String(),
		Status:     string(e.Status),
		Results:    e.Results,
	})
}

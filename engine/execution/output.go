package execution

import (
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// OutputStatus is the terminal state a node finishes in.
type OutputStatus string

const (
	OutputSuccess OutputStatus = "SUCCESS"
	OutputFailed  OutputStatus = "FAILED"
)

// Output is the once-written result of one node's dispatch (EXO-),
// consumed by the collector (C10) and aggregated by the finalizer (C11).
type Output struct {
	ID           core.ID
	ExecutionID  core.ID
	NodeID       core.ID
	Status       OutputStatus
	ResultData   map[string]any
	Duration     time.Duration
	ErrorMessage string
	ErrorDetails map[string]any
	CreatedAt    time.Time
}

// NewOutput creates an Output record.
func NewOutput(executionID, nodeID core.ID, status OutputStatus, resultData map[string]any, duration time.Duration, errMsg string, errDetails map[string]any) (*Output, error) {
	id, err := core.NewID(core.PrefixExecOutput)
	if err != nil {
		return nil, err
	}
	return &Output{
		ID:           id,
		ExecutionID:  executionID,
		NodeID:       nodeID,
		Status:       status,
		ResultData:   resultData,
		Duration:     duration,
		ErrorMessage: errMsg,
		ErrorDetails: errDetails,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ToNodeResult projects an Output into the shape aggregated onto Execution.
func (o *Output) ToNodeResult() NodeResult {
	return NodeResult{
		Status:       string(o.Status),
		ResultData:   o.ResultData,
		Duration:     o.Duration,
		ErrorMessage: o.ErrorMessage,
		ErrorDetails: o.ErrorDetails,
	}
}

// WorkerResult is the worker-runtime boundary payload (worker -> C10), one
// record per finished node.
type WorkerResult struct {
	ExecutionID  core.ID        `json:"execution_id"`
	NodeID       core.ID        `json:"node_id"`
	Status       OutputStatus   `json:"status"`
	ResultData   map[string]any `json:"result_data,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
}

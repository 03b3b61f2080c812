package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
)

// PyRunner is the out-of-process Runner: it invokes the configured Python
// interpreter against record.ScriptPath, feeding resolved params as a JSON
// object on stdin and expecting a single JSON object on stdout shaped like
// pyRunnerOutput. Anything the interpreter writes to stderr is carried into
// a failed WorkerResult's ErrorDetails for diagnosis.
type PyRunner struct {
	interpreter string
}

// NewPyRunner returns a Runner that shells out to interpreter (e.g.
// "python3") for every dispatched node.
func NewPyRunner(interpreter string) *PyRunner {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &PyRunner{interpreter: interpreter}
}

// pyRunnerOutput is the wire contract a script prints to stdout on success.
type pyRunnerOutput struct {
	Result map[string]any `json:"result"`
}

// Run satisfies Runner. A non-zero exit or malformed stdout is a business
// failure (a FAILED WorkerResult, not a returned error): only a failure to
// even start the interpreter is treated as infrastructure-level and
// returned as an error so Adapter.Dispatch retries it.
func (r *PyRunner) Run(ctx context.Context, record execution.DispatchRecord) (execution.WorkerResult, error) {
	timeout := time.Duration(record.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(record.Params)
	if err != nil {
		return execution.WorkerResult{}, fmt.Errorf("pyrunner: marshal params: %w", err)
	}

	start := time.Now()
	cmd := exec.CommandContext(runCtx, r.interpreter, record.ScriptPath)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr != nil {
		if _, isExitErr := runErr.(*exec.ExitError); isExitErr {
			return r.failed(record, duration, "script exited with error", map[string]any{
				"code":   core.CodeInternal,
				"stderr": stderr.String(),
			}), nil
		}
		return execution.WorkerResult{}, fmt.Errorf("pyrunner: start interpreter: %w", runErr)
	}

	var out pyRunnerOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return r.failed(record, duration, "script produced invalid output", map[string]any{
			"code":   core.CodeInternal,
			"stdout": stdout.String(),
			"stderr": stderr.String(),
		}), nil
	}

	return execution.WorkerResult{
		ExecutionID: record.ExecutionID,
		NodeID:      record.NodeID,
		Status:      execution.OutputSuccess,
		ResultData:  out.Result,
		DurationMS:  duration.Milliseconds(),
	}, nil
}

func (r *PyRunner) failed(record execution.DispatchRecord, duration time.Duration, msg string, details map[string]any) execution.WorkerResult {
	return execution.WorkerResult{
		ExecutionID:  record.ExecutionID,
		NodeID:       record.NodeID,
		Status:       execution.OutputFailed,
		DurationMS:   duration.Milliseconds(),
		ErrorMessage: msg,
		ErrorDetails: details,
	}
}

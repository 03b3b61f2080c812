// Package worker defines the boundary between the execution core and the
// out-of-process script runtime, plus an in-process reference adapter that
// implements that boundary without shelling out to a real interpreter.
package worker

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/pkg/logger"
)

// Runner executes one dispatched node and returns its result. A returned
// error is an infrastructure failure (the runner itself could not be
// reached); a business failure is instead encoded as a FAILED WorkerResult.
type Runner interface {
	Run(ctx context.Context, record execution.DispatchRecord) (execution.WorkerResult, error)
}

// RetryConfig tunes the backoff applied around a Runner call.
type RetryConfig struct {
	DelayStart time.Duration
	DelayMax   time.Duration
	MaxRetries uint64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{DelayStart: 100 * time.Millisecond, DelayMax: 2 * time.Second, MaxRetries: 3}
}

// Adapter is an in-process reference implementation of the worker-runtime
// boundary: Dispatch runs the node inline (with backoff around
// infrastructure failures) and queues its WorkerResult for PullResults to
// return, standing in for a real out-of-process script host.
type Adapter struct {
	runner  Runner
	retry   RetryConfig
	results chan execution.WorkerResult
}

func NewAdapter(runner Runner, retry RetryConfig, queueSize int) *Adapter {
	return &Adapter{runner: runner, retry: retry, results: make(chan execution.WorkerResult, queueSize)}
}

// Dispatch satisfies scheduler.Runtime. It runs the node synchronously with
// retry/backoff around infrastructure errors; a business failure (including
// a process_type other than "python", per the reference adapter's stub
// behavior) becomes a FAILED WorkerResult rather than a Dispatch error, so
// the caller still deletes the claimed Input and lets the collector observe
// the failure.
func (a *Adapter) Dispatch(ctx context.Context, record execution.DispatchRecord) error {
	log := logger.FromContext(ctx).With("execution_id", record.ExecutionID, "node_id", record.NodeID)

	if record.ProcessType != "python" {
		a.results <- execution.WorkerResult{
			ExecutionID:  record.ExecutionID,
			NodeID:       record.NodeID,
			Status:       execution.OutputFailed,
			ErrorMessage: "unsupported process_type: " + record.ProcessType,
			ErrorDetails: map[string]any{"code": core.CodeScriptMissing},
		}
		return nil
	}

	backoff := retry.NewExponential(a.retry.DelayStart)
	backoff = retry.WithCappedDuration(a.retry.DelayMax, backoff)
	backoff = retry.WithJitter(20*time.Millisecond, backoff)
	backoff = retry.WithMaxRetries(a.retry.MaxRetries, backoff)

	var result execution.WorkerResult
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, runErr := a.runner.Run(ctx, record)
		if runErr != nil {
			log.With("error", runErr).Warn("worker run failed, retrying")
			return retry.RetryableError(runErr)
		}
		result = r
		return nil
	})
	if err != nil {
		return err
	}
	a.results <- result
	return nil
}

// PullResults satisfies collector.Runtime, draining whatever is currently
// queued without blocking past the first empty read.
func (a *Adapter) PullResults(ctx context.Context) ([]execution.WorkerResult, error) {
	var out []execution.WorkerResult
	for {
		select {
		case r := <-a.results:
			out = append(out, r)
		default:
			return out, nil
		}
	}
}

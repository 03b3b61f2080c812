// Package collector implements C10: the output-collector loop that writes
// ExecutionOutputs, decrements downstream dependency counts, and cancels
// branches made unreachable by a failed node.
package collector

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/pkg/logger"
)

var (
	collectorMetricsOnce sync.Once
	collectorOutputs     metric.Int64Counter
	collectorTerminal    metric.Int64Counter
)

func ensureCollectorMetrics() {
	collectorMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("miniflow.collector")
		collectorOutputs, _ = meter.Int64Counter(
			"miniflow_collector_outputs_written_total",
			metric.WithDescription("Total ExecutionOutputs written by a collector loop"),
		)
		collectorTerminal, _ = meter.Int64Counter(
			"miniflow_collector_executions_terminal_total",
			metric.WithDescription("Total executions observed reaching a terminal status"),
		)
	})
}

// Store is the persistence boundary the collector writes through. Each
// method is expected to run within a single transaction so an output
// insert and its downstream dependency decrements are atomic.
type Store interface {
	// AlreadyRecorded reports whether this (execution, node) pair already
	// has an output, making the collector idempotent per delivery.
	AlreadyRecorded(ctx context.Context, executionID, nodeID core.ID) (bool, error)
	// WriteOutput persists out and, in the same transaction, decrements
	// dependency_count on every Input reachable from nodeID's recorded
	// fanout, returning the input ids that became ready.
	WriteOutput(ctx context.Context, out *execution.Output) ([]core.ID, error)
	// CancelUnreachable marks as unreachable every Input downstream of a
	// failed node whose references depend on it, in the same transaction.
	CancelUnreachable(ctx context.Context, executionID, failedNodeID core.ID) error
	// LoadExecution fetches the current Execution for re-evaluation.
	LoadExecution(ctx context.Context, executionID core.ID) (*execution.Execution, error)
}

// Finalizer is the subset of execution.Finalizer the collector drives after
// every write (C10 step 4).
type Finalizer interface {
	Evaluate(ctx context.Context, e *execution.Execution) (bool, error)
}

// Runtime is the worker-runtime result-ingest boundary.
type Runtime interface {
	// PullResults returns acknowledged results waiting to be collected,
	// blocking up to the runtime's own poll interval.
	PullResults(ctx context.Context) ([]execution.WorkerResult, error)
}

// Notifier publishes an execution's terminal transition to external
// subscribers (e.g. SSE clients, webhooks). Optional: a nil Notifier just
// skips publication, for processes running without a distributed cache.
type Notifier interface {
	PublishExecutionEvent(ctx context.Context, executionID, status string, data map[string]any) error
}

// Loop is one collector-loop instance (C10).
type Loop struct {
	store     Store
	finalizer Finalizer
	runtime   Runtime
	notifier  Notifier

	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(store Store, finalizer Finalizer, runtime Runtime) *Loop {
	ensureCollectorMetrics()
	return &Loop{store: store, finalizer: finalizer, runtime: runtime, done: make(chan struct{})}
}

// WithNotifier attaches a Notifier that is published to after every
// newly-terminal execution. Returns l for chaining at construction time.
func (l *Loop) WithNotifier(notifier Notifier) *Loop {
	l.notifier = notifier
	return l
}

// Run blocks, repeatedly running Tick, until ctx is cancelled or Stop is
// called.
func (l *Loop) Run(ctx context.Context, pollInterval time.Duration) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		default:
		}
		if err := l.Tick(ctx); err != nil {
			log.With("error", err).Error("collector tick failed")
		}
		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return
		case <-l.done:
			return
		}
	}
}

// Stop ends a running loop.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Tick pulls and processes one batch of acknowledged worker results.
func (l *Loop) Tick(ctx context.Context) error {
	results, err := l.runtime.PullResults(ctx)
	if err != nil {
		return err
	}
	for _, result := range results {
		if err := l.ingest(ctx, result); err != nil {
			logger.FromContext(ctx).With("error", err, "execution_id", result.ExecutionID, "node_id", result.NodeID).
				Error("failed to ingest worker result")
		}
	}
	return nil
}

func (l *Loop) ingest(ctx context.Context, result execution.WorkerResult) error {
	already, err := l.store.AlreadyRecorded(ctx, result.ExecutionID, result.NodeID)
	if err != nil {
		return err
	}
	if already {
		return nil // idempotent: a second delivery of the same result is a no-op
	}

	out, err := execution.NewOutput(
		result.ExecutionID, result.NodeID, result.Status, result.ResultData,
		time.Duration(result.DurationMS)*time.Millisecond, result.ErrorMessage, result.ErrorDetails,
	)
	if err != nil {
		return err
	}

	if _, err := l.store.WriteOutput(ctx, out); err != nil {
		return err
	}
	if collectorOutputs != nil {
		collectorOutputs.Add(ctx, 1)
	}

	if result.Status == execution.OutputFailed {
		if err := l.store.CancelUnreachable(ctx, result.ExecutionID, result.NodeID); err != nil {
			return err
		}
	}

	exec, err := l.store.LoadExecution(ctx, result.ExecutionID)
	if err != nil {
		return err
	}
	terminal, err := l.finalizer.Evaluate(ctx, exec)
	if err != nil {
		return err
	}
	if terminal && collectorTerminal != nil {
		collectorTerminal.Add(ctx, 1)
	}
	if terminal && l.notifier != nil {
		if nerr := l.notifier.PublishExecutionEvent(ctx, exec.ID.String(), string(exec.Status), nil); nerr != nil {
			logger.FromContext(ctx).With("error", nerr, "execution_id", exec.ID).
				Warn("failed to publish execution terminal event")
		}
	}
	return nil
}

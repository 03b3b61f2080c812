// Package scheduler implements C9: the input-scheduler loop that claims
// ready ExecutionInputs, resolves their parameters, and dispatches them to
// the worker runtime.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/reference"
	"github.com/miniflow/miniflow/pkg/logger"
)

var (
	schedulerMetricsOnce  sync.Once
	schedulerClaimed      metric.Int64Counter
	schedulerDispatchFail metric.Int64Counter
)

func ensureSchedulerMetrics() {
	schedulerMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("miniflow.scheduler")
		schedulerClaimed, _ = meter.Int64Counter(
			"miniflow_scheduler_inputs_claimed_total",
			metric.WithDescription("Total ExecutionInputs claimed by a scheduler loop"),
		)
		schedulerDispatchFail, _ = meter.Int64Counter(
			"miniflow_scheduler_dispatch_failures_total",
			metric.WithDescription("Total dispatch failures left for a later tick"),
		)
	})
}

// Store is the persistence boundary the scheduler claims work through.
type Store interface {
	// ClaimReady atomically selects and marks in-flight up to batchSize
	// Inputs with dependency_count == 0, preferring higher priority then
	// older created_at, and returns them with enough workflow/workspace
	// context to build a dispatch record.
	ClaimReady(ctx context.Context, batchSize int) ([]*ClaimedInput, error)
	// DeleteInput removes the Input row once the runtime has acknowledged
	// receipt of its dispatch.
	DeleteInput(ctx context.Context, inputID core.ID) error
	// RecordFailure writes a synthetic FAILED output when resolution fails
	// before ever reaching the worker runtime.
	RecordFailure(ctx context.Context, executionID, nodeID core.ID, errMessage string, errDetails map[string]any) error
}

// ClaimedInput bundles an Input with the context Resolve needs.
type ClaimedInput struct {
	Input       *execution.Input
	WorkspaceID core.ID
	WorkflowID  core.ID
	TriggerData map[string]any
	Params      map[string]node.Param
}

// Runtime is the worker-runtime dispatch boundary.
type Runtime interface {
	Dispatch(ctx context.Context, record execution.DispatchRecord) error
}

// Config tunes the adaptive-polling behavior (C9 step 5).
type Config struct {
	BatchSize    int
	MinInterval  time.Duration
	MaxInterval  time.Duration
	ProcessType  string
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   16,
		MinInterval: 50 * time.Millisecond,
		MaxInterval: 5 * time.Second,
		ProcessType: "python",
	}
}

// Loop is one worker-loop instance (C9). Several may run concurrently;
// claiming is transactional at the Store so none ever hand the same input
// to two workers.
type Loop struct {
	store    Store
	resolver *reference.Resolver
	runtime  Runtime
	config   Config

	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewLoop(store Store, resolver *reference.Resolver, runtime Runtime, config Config) *Loop {
	ensureSchedulerMetrics()
	return &Loop{
		store:    store,
		resolver: resolver,
		runtime:  runtime,
		config:   config,
		interval: config.MinInterval,
		done:     make(chan struct{}),
	}
}

// Run blocks, repeatedly running Tick, until ctx is cancelled or Stop is
// called.
func (l *Loop) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		default:
		}
		n, err := l.Tick(ctx)
		if err != nil {
			log.With("error", err).Error("scheduler tick failed")
		}
		l.adapt(n)
		select {
		case <-time.After(l.interval):
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

// Tick performs one claim/resolve/dispatch pass and returns how many inputs
// it claimed.
func (l *Loop) Tick(ctx context.Context) (int, error) {
	claimed, err := l.store.ClaimReady(ctx, l.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(claimed) > 0 && schedulerClaimed != nil {
		schedulerClaimed.Add(ctx, int64(len(claimed)))
	}
	for _, c := range claimed {
		l.process(ctx, c)
	}
	return len(claimed), nil
}

func (l *Loop) process(ctx context.Context, c *ClaimedInput) {
	log := logger.FromContext(ctx).With(
		"execution_id", c.Input.ExecutionID,
		"node_id", c.Input.NodeID,
	)
	resolved, err := l.resolver.Resolve(ctx, reference.Input{
		WorkspaceID: c.WorkspaceID,
		ExecutionID: c.Input.ExecutionID,
		TriggerData: c.TriggerData,
	}, c.Params)
	if err != nil {
		code, _ := core.CodeOf(err)
		log.With("error", err, "code", code).Warn("reference resolution failed, recording synthetic failure")
		if recErr := l.store.RecordFailure(ctx, c.Input.ExecutionID, c.Input.NodeID, err.Error(), map[string]any{"code": code}); recErr != nil {
			log.With("error", recErr).Error("failed to record synthetic failure output")
		}
		return
	}

	record := c.Input.ToDispatchRecord(c.WorkspaceID, c.WorkflowID, resolved, l.config.ProcessType)
	if err := l.runtime.Dispatch(ctx, record); err != nil {
		log.With("error", err).Error("dispatch failed, leaving input for a later tick")
		if schedulerDispatchFail != nil {
			schedulerDispatchFail.Add(ctx, 1)
		}
		return
	}
	if err := l.store.DeleteInput(ctx, c.Input.ID); err != nil {
		log.With("error", err).Error("failed to delete dispatched input")
	}
}

// adapt implements the exponential-backoff / floor-seeking policy of C9
// step 5.
func (l *Loop) adapt(claimedCount int) {
	if claimedCount == 0 {
		l.interval *= 2
		if l.interval > l.config.MaxInterval {
			l.interval = l.config.MaxInterval
		}
		return
	}
	l.interval = l.interval / 2
	if l.interval < l.config.MinInterval {
		l.interval = l.config.MinInterval
	}
}

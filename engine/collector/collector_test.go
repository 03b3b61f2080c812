package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
)

type fakeStore struct {
	recorded     map[string]bool
	written      []*execution.Output
	cancelled    []core.ID
	exec         *execution.Execution
	writeErr     error
	readyOnWrite []core.ID
}

func key(executionID, nodeID core.ID) string {
	return string(executionID) + "/" + string(nodeID)
}

func (f *fakeStore) AlreadyRecorded(ctx context.Context, executionID, nodeID core.ID) (bool, error) {
	return f.recorded[key(executionID, nodeID)], nil
}

func (f *fakeStore) WriteOutput(ctx context.Context, out *execution.Output) ([]core.ID, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.recorded == nil {
		f.recorded = map[string]bool{}
	}
	f.recorded[key(out.ExecutionID, out.NodeID)] = true
	f.written = append(f.written, out)
	return f.readyOnWrite, nil
}

func (f *fakeStore) CancelUnreachable(ctx context.Context, executionID, failedNodeID core.ID) error {
	f.cancelled = append(f.cancelled, failedNodeID)
	return nil
}

func (f *fakeStore) LoadExecution(ctx context.Context, executionID core.ID) (*execution.Execution, error) {
	return f.exec, nil
}

type fakeFinalizer struct {
	evaluated []core.ID
	terminal  bool
}

func (f *fakeFinalizer) Evaluate(ctx context.Context, e *execution.Execution) (bool, error) {
	f.evaluated = append(f.evaluated, e.ID)
	return f.terminal, nil
}

type fakeRuntime struct {
	results []execution.WorkerResult
}

func (f *fakeRuntime) PullResults(ctx context.Context) ([]execution.WorkerResult, error) {
	results := f.results
	f.results = nil
	return results, nil
}

func newTestExecution(t *testing.T) *execution.Execution {
	t.Helper()
	ws, _ := core.NewID(core.PrefixWorkspace)
	wf, _ := core.NewID(core.PrefixWorkflow)
	trg, _ := core.NewID(core.PrefixTrigger)
	e, err := execution.New(ws, wf, trg, nil, 0)
	require.NoError(t, err)
	return e
}

func TestLoopTick(t *testing.T) {
	t.Run("Should write an output and evaluate the finalizer on a successful result", func(t *testing.T) {
		exec := newTestExecution(t)
		nodeID, _ := core.NewID(core.PrefixNode)
		store := &fakeStore{exec: exec}
		finalizer := &fakeFinalizer{}
		runtime := &fakeRuntime{results: []execution.WorkerResult{
			{ExecutionID: exec.ID, NodeID: nodeID, Status: execution.OutputSuccess, DurationMS: 12},
		}}
		loop := NewLoop(store, finalizer, runtime)
		err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Len(t, store.written, 1)
		assert.Empty(t, store.cancelled)
		assert.Len(t, finalizer.evaluated, 1)
	})

	t.Run("Should cancel downstream branches on a failed result", func(t *testing.T) {
		exec := newTestExecution(t)
		nodeID, _ := core.NewID(core.PrefixNode)
		store := &fakeStore{exec: exec}
		finalizer := &fakeFinalizer{}
		runtime := &fakeRuntime{results: []execution.WorkerResult{
			{ExecutionID: exec.ID, NodeID: nodeID, Status: execution.OutputFailed, ErrorMessage: "boom"},
		}}
		loop := NewLoop(store, finalizer, runtime)
		err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []core.ID{nodeID}, store.cancelled)
	})

	t.Run("Should treat a second delivery of the same result as a no-op", func(t *testing.T) {
		exec := newTestExecution(t)
		nodeID, _ := core.NewID(core.PrefixNode)
		store := &fakeStore{exec: exec, recorded: map[string]bool{key(exec.ID, nodeID): true}}
		finalizer := &fakeFinalizer{}
		runtime := &fakeRuntime{results: []execution.WorkerResult{
			{ExecutionID: exec.ID, NodeID: nodeID, Status: execution.OutputSuccess},
		}}
		loop := NewLoop(store, finalizer, runtime)
		err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Empty(t, store.written)
		assert.Empty(t, finalizer.evaluated)
	})
}

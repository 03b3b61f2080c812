package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
)

type fakeStore struct {
	snapshot       *PlanSnapshot
	saved          *Execution
	deletedFor     core.ID
	terminalEvents int
}

func (f *fakeStore) LoadPlanSnapshot(ctx context.Context, executionID core.ID) (*PlanSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakeStore) SaveExecution(ctx context.Context, e *Execution) error {
	f.saved = e
	return nil
}

func (f *fakeStore) DeleteInputsAndOutputs(ctx context.Context, executionID core.ID) error {
	f.deletedFor = executionID
	return nil
}

func (f *fakeStore) EmitTerminalEvent(ctx context.Context, e *Execution) error {
	f.terminalEvents++
	return nil
}

func newExec(t *testing.T) *Execution {
	t.Helper()
	ws, _ := core.NewID(core.PrefixWorkspace)
	wf, _ := core.NewID(core.PrefixWorkflow)
	e, err := New(ws, wf, "", nil, time.Hour)
	require.NoError(t, err)
	return e
}

func TestFinalizerEvaluate(t *testing.T) {
	nodeA, _ := core.NewID(core.PrefixNode)
	nodeB, _ := core.NewID(core.PrefixNode)

	t.Run("Should finalize CANCELLED immediately when the cancel marker is set", func(t *testing.T) {
		e := newExec(t)
		e.Cancel()
		store := &fakeStore{}
		f := NewFinalizer(store)
		done, err := f.Evaluate(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, StatusCancelled, e.Status)
		assert.Equal(t, 1, store.terminalEvents)
	})

	t.Run("Should finalize TIMEOUT once past the deadline", func(t *testing.T) {
		ws, _ := core.NewID(core.PrefixWorkspace)
		wf, _ := core.NewID(core.PrefixWorkflow)
		e, err := New(ws, wf, "", nil, -time.Minute)
		require.NoError(t, err)
		store := &fakeStore{}
		f := NewFinalizer(store)
		done, err := f.Evaluate(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, StatusTimeout, e.Status)
	})

	t.Run("Should wait when not every planned node has an output yet", func(t *testing.T) {
		e := newExec(t)
		store := &fakeStore{snapshot: &PlanSnapshot{
			PlannedNodeIDs: []core.ID{nodeA, nodeB},
			Outputs:        map[core.ID]*Output{},
			Unreachable:    map[core.ID]bool{},
		}}
		f := NewFinalizer(store)
		done, err := f.Evaluate(context.Background(), e)
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("Should finalize COMPLETED when every node succeeded", func(t *testing.T) {
		e := newExec(t)
		outA, err := NewOutput(e.ID, nodeA, OutputSuccess, map[string]any{"ok": true}, time.Second, "", nil)
		require.NoError(t, err)
		outB, err := NewOutput(e.ID, nodeB, OutputSuccess, nil, time.Second, "", nil)
		require.NoError(t, err)
		store := &fakeStore{snapshot: &PlanSnapshot{
			PlannedNodeIDs: []core.ID{nodeA, nodeB},
			Outputs:        map[core.ID]*Output{nodeA: outA, nodeB: outB},
			Unreachable:    map[core.ID]bool{},
		}}
		f := NewFinalizer(store)
		done, err := f.Evaluate(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, StatusCompleted, e.Status)
		assert.Equal(t, e.ID, store.deletedFor)
	})

	t.Run("Should finalize FAILED when a node failed and treat unreachable nodes as failed", func(t *testing.T) {
		e := newExec(t)
		outA, err := NewOutput(e.ID, nodeA, OutputFailed, nil, time.Second, "boom", nil)
		require.NoError(t, err)
		store := &fakeStore{snapshot: &PlanSnapshot{
			PlannedNodeIDs: []core.ID{nodeA, nodeB},
			Outputs:        map[core.ID]*Output{nodeA: outA},
			Unreachable:    map[core.ID]bool{nodeB: true},
		}}
		f := NewFinalizer(store)
		done, err := f.Evaluate(context.Background(), e)
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, StatusFailed, e.Status)
		assert.Contains(t, e.Results, string(nodeB))
	})
}

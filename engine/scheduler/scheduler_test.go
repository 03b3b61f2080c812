package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/reference"
)

type fakeStore struct {
	toClaim       []*ClaimedInput
	deletedInputs []core.ID
	failures      []string
}

func (f *fakeStore) ClaimReady(ctx context.Context, batchSize int) ([]*ClaimedInput, error) {
	claimed := f.toClaim
	f.toClaim = nil
	return claimed, nil
}

func (f *fakeStore) DeleteInput(ctx context.Context, inputID core.ID) error {
	f.deletedInputs = append(f.deletedInputs, inputID)
	return nil
}

func (f *fakeStore) RecordFailure(ctx context.Context, executionID, nodeID core.ID, errMessage string, errDetails map[string]any) error {
	f.failures = append(f.failures, errMessage)
	return nil
}

type fakeRuntime struct {
	dispatched []execution.DispatchRecord
	err        error
}

func (f *fakeRuntime) Dispatch(ctx context.Context, record execution.DispatchRecord) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, record)
	return nil
}

type fakeNodeOutputs struct{}

func (fakeNodeOutputs) SuccessResult(ctx context.Context, executionID, nodeID core.ID) (map[string]any, bool, error) {
	return nil, false, nil
}

type fakeVariables struct{}

func (fakeVariables) Reveal(ctx context.Context, workspaceID, variableID core.ID) (string, error) {
	return "", nil
}

type fakeCredentials struct{}

func (fakeCredentials) AsMap(ctx context.Context, workspaceID, credentialID core.ID) (map[string]any, error) {
	return nil, nil
}

type fakeDatabases struct{}

func (fakeDatabases) AsMap(ctx context.Context, workspaceID, databaseID core.ID) (map[string]any, error) {
	return nil, nil
}

type fakeFiles struct{}

func (fakeFiles) Metadata(ctx context.Context, workspaceID, fileID core.ID) (map[string]any, error) {
	return nil, nil
}

func (fakeFiles) Content(ctx context.Context, workspaceID, fileID core.ID) ([]byte, error) {
	return nil, nil
}

func newTestResolver() *reference.Resolver {
	return reference.NewResolver(fakeNodeOutputs{}, fakeVariables{}, fakeCredentials{}, fakeDatabases{}, fakeFiles{})
}

func testClaimedInput(t *testing.T) *ClaimedInput {
	t.Helper()
	ws, _ := core.NewID(core.PrefixWorkspace)
	wf, _ := core.NewID(core.PrefixWorkflow)
	exc, _ := core.NewID(core.PrefixExecution)
	nodeID, _ := core.NewID(core.PrefixNode)
	in, err := execution.NewInput(exc, nodeID, "A", "script", "/path", nil, 1, 0, 3, 30)
	require.NoError(t, err)
	return &ClaimedInput{
		Input:       in,
		WorkspaceID: ws,
		WorkflowID:  wf,
		TriggerData: map[string]any{"seed": float64(1)},
		Params:      map[string]node.Param{"x": {Type: node.ParamInteger, Value: float64(1)}},
	}
}

func TestLoopTick(t *testing.T) {
	t.Run("Should dispatch a claimed input and delete it on success", func(t *testing.T) {
		store := &fakeStore{toClaim: []*ClaimedInput{testClaimedInput(t)}}
		runtime := &fakeRuntime{}
		loop := NewLoop(store, newTestResolver(), runtime, DefaultConfig())
		n, err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, runtime.dispatched, 1)
		assert.Len(t, store.deletedInputs, 1)
	})

	t.Run("Should leave the input undeleted when dispatch fails", func(t *testing.T) {
		store := &fakeStore{toClaim: []*ClaimedInput{testClaimedInput(t)}}
		runtime := &fakeRuntime{err: assert.AnError}
		loop := NewLoop(store, newTestResolver(), runtime, DefaultConfig())
		_, err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Empty(t, store.deletedInputs)
	})

	t.Run("Should record a synthetic failure when resolution fails", func(t *testing.T) {
		claimed := testClaimedInput(t)
		claimed.Params = map[string]node.Param{"ok": {Type: node.ParamBoolean, Value: "not-a-bool"}}
		store := &fakeStore{toClaim: []*ClaimedInput{claimed}}
		runtime := &fakeRuntime{}
		loop := NewLoop(store, newTestResolver(), runtime, DefaultConfig())
		_, err := loop.Tick(context.Background())
		require.NoError(t, err)
		assert.Len(t, store.failures, 1)
		assert.Empty(t, runtime.dispatched)
	})
}

func TestLoopAdapt(t *testing.T) {
	cfg := Config{BatchSize: 1, MinInterval: 10 * time.Millisecond, MaxInterval: 100 * time.Millisecond}

	t.Run("Should back off on an empty claim", func(t *testing.T) {
		loop := NewLoop(&fakeStore{}, newTestResolver(), &fakeRuntime{}, cfg)
		loop.adapt(0)
		assert.Equal(t, 20*time.Millisecond, loop.interval)
	})

	t.Run("Should not exceed the max interval", func(t *testing.T) {
		loop := NewLoop(&fakeStore{}, newTestResolver(), &fakeRuntime{}, cfg)
		loop.interval = cfg.MaxInterval
		loop.adapt(0)
		assert.Equal(t, cfg.MaxInterval, loop.interval)
	})

	t.Run("Should seek toward the floor on a non-empty claim", func(t *testing.T) {
		loop := NewLoop(&fakeStore{}, newTestResolver(), &fakeRuntime{}, cfg)
		loop.interval = cfg.MaxInterval
		loop.adapt(3)
		assert.Equal(t, cfg.MaxInterval/2, loop.interval)
	})

	t.Run("Should not go below the min interval", func(t *testing.T) {
		loop := NewLoop(&fakeStore{}, newTestResolver(), &fakeRuntime{}, cfg)
		loop.interval = cfg.MinInterval
		loop.adapt(3)
		assert.Equal(t, cfg.MinInterval, loop.interval)
	})
}

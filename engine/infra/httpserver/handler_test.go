package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/infra/cache"
	"github.com/miniflow/miniflow/engine/plan"
	"github.com/miniflow/miniflow/engine/trigger"
	"github.com/miniflow/miniflow/engine/workflow"
	"github.com/miniflow/miniflow/engine/workspace"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeTriggers struct {
	byID map[core.ID]*trigger.Trigger
}

func (f *fakeTriggers) Create(context.Context, *trigger.Trigger) error { return nil }
func (f *fakeTriggers) Get(_ context.Context, id core.ID) (*trigger.Trigger, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, assertAnError
	}
	return t, nil
}
func (f *fakeTriggers) ListByWorkflow(context.Context, core.ID) ([]*trigger.Trigger, error) {
	return nil, nil
}
func (f *fakeTriggers) Update(context.Context, *trigger.Trigger) error { return nil }
func (f *fakeTriggers) CountByWorkflow(context.Context, core.ID) (int, error) {
	return len(f.byID), nil
}

type fakeWorkflows struct {
	byID map[core.ID]*workflow.Workflow
}

func (f *fakeWorkflows) Create(context.Context, *workflow.Workflow) error { return nil }
func (f *fakeWorkflows) Get(_ context.Context, id core.ID) (*workflow.Workflow, error) {
	wf, ok := f.byID[id]
	if !ok {
		return nil, assertAnError
	}
	return wf, nil
}
func (f *fakeWorkflows) ListByWorkspace(context.Context, core.ID) ([]*workflow.Workflow, error) {
	return nil, nil
}
func (f *fakeWorkflows) Update(context.Context, *workflow.Workflow) error { return nil }
func (f *fakeWorkflows) CountByWorkspace(context.Context, core.ID) (int, error) {
	return len(f.byID), nil
}

type fakeWorkspaces struct {
	byID map[core.ID]*workspace.Workspace
}

func (f *fakeWorkspaces) Create(context.Context, *workspace.Workspace) error { return nil }
func (f *fakeWorkspaces) Get(_ context.Context, id core.ID) (*workspace.Workspace, error) {
	ws, ok := f.byID[id]
	if !ok {
		return nil, assertAnError
	}
	return ws, nil
}
func (f *fakeWorkspaces) GetBySlug(context.Context, string) (*workspace.Workspace, error) {
	return nil, assertAnError
}
func (f *fakeWorkspaces) Update(context.Context, *workspace.Workspace) error { return nil }

type fakeGraphStore struct {
	graph *execution.Graph
}

func (f *fakeGraphStore) LoadGraph(context.Context, core.ID) (*execution.Graph, error) {
	return f.graph, nil
}
func (f *fakeGraphStore) SaveInputs(context.Context, []*execution.Input) error { return nil }
func (f *fakeGraphStore) SaveFanout(context.Context, core.ID, map[core.ID][]core.ID) error {
	return nil
}
func (f *fakeGraphStore) SaveExecution(context.Context, *execution.Execution) error { return nil }

type fakeExecutionReader struct {
	byID map[core.ID]*execution.Execution
}

func (f *fakeExecutionReader) LoadExecution(_ context.Context, id core.ID) (*execution.Execution, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, assertAnError
	}
	return e, nil
}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

var assertAnError = &stubError{msg: "not found"}

// fakeCounter reports a fixed concurrent-execution count regardless of the
// requested resource, letting tests drive the quota check deterministically.
type fakeCounter struct{ current int64 }

func (f fakeCounter) Counter(context.Context, core.ID, workspace.Resource) (int64, error) {
	return f.current, nil
}

// fakeLockManager grants every Acquire call unless held is true, in which
// case it reports the resource as already locked.
type fakeLockManager struct{ held bool }

func (f *fakeLockManager) Acquire(context.Context, string, time.Duration) (cache.Lock, error) {
	if f.held {
		return nil, cache.ErrLockNotAcquired
	}
	return &fakeLock{}, nil
}

type fakeLock struct{}

func (f *fakeLock) Release(context.Context) error { return nil }
func (f *fakeLock) Refresh(context.Context) error  { return nil }
func (f *fakeLock) Resource() string               { return "" }
func (f *fakeLock) IsHeld() bool                   { return true }

func TestTriggerHandler_Fire(t *testing.T) {
	workspaceID := core.MustNewID(core.PrefixWorkspace)
	ws, err := workspace.New(core.MustNewID(core.PrefixUser), "acme", "acme", plan.Freemium)
	require.NoError(t, err)
	ws.ID = workspaceID
	wf, err := workflow.New(workspaceID, "ingest", 1)
	require.NoError(t, err)
	wf.Status = workflow.StatusActive
	trg, err := trigger.New(wf.ID, "on-demand", trigger.TypeManual, nil, nil, false)
	require.NoError(t, err)

	workspaces := &fakeWorkspaces{byID: map[core.ID]*workspace.Workspace{ws.ID: ws}}
	planner := execution.NewPlanner(&fakeGraphStore{graph: &execution.Graph{}}, &fakeGraphStore{graph: &execution.Graph{}})
	handler := NewTriggerHandler(
		&fakeTriggers{byID: map[core.ID]*trigger.Trigger{trg.ID: trg}},
		&fakeWorkflows{byID: map[core.ID]*workflow.Workflow{wf.ID: wf}},
		workspaces,
		workspace.NewAccountant(fakeCounter{current: 0}),
		nil,
		planner,
	)

	r := gin.New()
	r.POST("/v1/triggers/:trigger_id/fire", handler.Fire)

	t.Run("Should accept a valid manual trigger and return a pending execution", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/"+trg.ID.String()+"/fire", http.NoBody)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		require.Equal(t, http.StatusAccepted, res.Code)

		var body fireResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
		assert.NotEmpty(t, body.ExecutionID)
		assert.Equal(t, "RUNNING", body.Status)
	})

	t.Run("Should reject an unknown trigger id", func(t *testing.T) {
		missing := core.MustNewID(core.PrefixTrigger)
		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/"+missing.String()+"/fire", http.NoBody)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		assert.NotEqual(t, http.StatusAccepted, res.Code)
	})

	t.Run("Should reject a malformed trigger id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/not-an-id/fire", http.NoBody)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("Should refuse a fire once the workspace is at its concurrent-execution limit", func(t *testing.T) {
		limited := NewTriggerHandler(
			&fakeTriggers{byID: map[core.ID]*trigger.Trigger{trg.ID: trg}},
			&fakeWorkflows{byID: map[core.ID]*workflow.Workflow{wf.ID: wf}},
			workspaces,
			workspace.NewAccountant(fakeCounter{current: 1}),
			nil,
			planner,
		)
		lr := gin.New()
		lr.POST("/v1/triggers/:trigger_id/fire", limited.Fire)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/"+trg.ID.String()+"/fire", http.NoBody)
		res := httptest.NewRecorder()
		lr.ServeHTTP(res, req)
		assert.NotEqual(t, http.StatusAccepted, res.Code)
	})

	t.Run("Should reject a fire racing a concurrent duplicate delivery", func(t *testing.T) {
		guarded := NewTriggerHandler(
			&fakeTriggers{byID: map[core.ID]*trigger.Trigger{trg.ID: trg}},
			&fakeWorkflows{byID: map[core.ID]*workflow.Workflow{wf.ID: wf}},
			workspaces,
			workspace.NewAccountant(fakeCounter{current: 0}),
			&fakeLockManager{held: true},
			planner,
		)
		gr := gin.New()
		gr.POST("/v1/triggers/:trigger_id/fire", guarded.Fire)

		req := httptest.NewRequest(http.MethodPost, "/v1/triggers/"+trg.ID.String()+"/fire", http.NoBody)
		res := httptest.NewRecorder()
		gr.ServeHTTP(res, req)
		assert.Equal(t, http.StatusConflict, res.Code)
	})
}

func TestExecutionHandler_Get(t *testing.T) {
	e, err := execution.New(
		core.MustNewID(core.PrefixWorkspace),
		core.MustNewID(core.PrefixWorkflow),
		core.MustNewID(core.PrefixTrigger),
		map[string]any{"foo": "bar"},
		0,
	)
	require.NoError(t, err)

	handler := NewExecutionHandler(&fakeExecutionReader{byID: map[core.ID]*execution.Execution{e.ID: e}})
	r := gin.New()
	r.GET("/v1/executions/:execution_id", handler.Get)

	t.Run("Should return execution status by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/executions/"+e.ID.String(), http.NoBody)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		require.Equal(t, http.StatusOK, res.Code)
		ct := res.Header().Get("Content-Type")
		assert.True(t, strings.HasPrefix(ct, "application/json"))
	})

	t.Run("Should 404 on an unknown execution id", func(t *testing.T) {
		missing := core.MustNewID(core.PrefixExecution)
		req := httptest.NewRequest(http.MethodGet, "/v1/executions/"+missing.String(), http.NoBody)
		res := httptest.NewRecorder()
		r.ServeHTTP(res, req)
		assert.NotEqual(t, http.StatusOK, res.Code)
	})
}

package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/node"
)

type fakeGraphLoader struct {
	graph *Graph
}

func (f *fakeGraphLoader) LoadGraph(ctx context.Context, workflowID core.ID) (*Graph, error) {
	return f.graph, nil
}

type fakePlannerStore struct {
	savedInputs []*Input
	fanout      map[core.ID][]core.ID
	savedExec   *Execution
}

func (f *fakePlannerStore) SaveInputs(ctx context.Context, inputs []*Input) error {
	f.savedInputs = inputs
	return nil
}

func (f *fakePlannerStore) SaveFanout(ctx context.Context, executionID core.ID, fanout map[core.ID][]core.ID) error {
	f.fanout = fanout
	return nil
}

func (f *fakePlannerStore) SaveExecution(ctx context.Context, e *Execution) error {
	f.savedExec = e
	return nil
}

func TestPlannerPlan(t *testing.T) {
	t.Run("Should snapshot every node with its in-degree and mark the execution running", func(t *testing.T) {
		a, _ := core.NewID(core.PrefixNode)
		b, _ := core.NewID(core.PrefixNode)
		c, _ := core.NewID(core.PrefixNode)
		graph := &Graph{
			Priority: 3,
			Nodes: []PlanNode{
				{ID: a, Name: "a", ScriptName: "s1", ScriptPath: "/s1.py", Params: map[string]node.Param{}, MaxRetries: 3, TimeoutSeconds: 30},
				{ID: b, Name: "b", ScriptName: "s2", ScriptPath: "/s2.py", Params: map[string]node.Param{}, MaxRetries: 3, TimeoutSeconds: 30},
				{ID: c, Name: "c", ScriptName: "s3", ScriptPath: "/s3.py", Params: map[string]node.Param{}, MaxRetries: 3, TimeoutSeconds: 30},
			},
			Edges: []PlanEdge{{From: a, To: c}, {From: b, To: c}},
		}
		loader := &fakeGraphLoader{graph: graph}
		store := &fakePlannerStore{}
		planner := NewPlanner(loader, store)

		ws, _ := core.NewID(core.PrefixWorkspace)
		wf, _ := core.NewID(core.PrefixWorkflow)
		trg, _ := core.NewID(core.PrefixTrigger)
		e, err := New(ws, wf, trg, nil, 0)
		require.NoError(t, err)

		require.NoError(t, planner.Plan(context.Background(), e))

		require.Len(t, store.savedInputs, 3)
		byNode := map[core.ID]*Input{}
		for _, in := range store.savedInputs {
			byNode[in.NodeID] = in
		}
		assert.Equal(t, 0, byNode[a].DependencyCount)
		assert.Equal(t, InputReady, byNode[a].Status)
		assert.Equal(t, 0, byNode[b].DependencyCount)
		assert.Equal(t, 2, byNode[c].DependencyCount)
		assert.Equal(t, InputWaiting, byNode[c].Status)
		assert.Equal(t, 3, byNode[a].Priority)

		assert.ElementsMatch(t, []core.ID{c}, store.fanout[a])
		assert.ElementsMatch(t, []core.ID{c}, store.fanout[b])
		assert.Empty(t, store.fanout[c])

		assert.Equal(t, StatusRunning, store.savedExec.Status)
		assert.NotNil(t, store.savedExec.StartedAt)
	})
}

package execution

import (
	"context"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/node"
)

// PlanNode is the planner's workflow-graph view of one node, already joined
// against its script at snapshot time.
type PlanNode struct {
	ID             core.ID
	Name           string
	ScriptName     string
	ScriptPath     string
	Params         map[string]node.Param
	MaxRetries     int
	TimeoutSeconds int
}

// PlanEdge is a directed dependency between two PlanNode ids.
type PlanEdge struct {
	From core.ID
	To   core.ID
}

// Graph is the consistent snapshot the planner reads once per Execution
// (C8 step 1).
type Graph struct {
	Priority int
	Nodes    []PlanNode
	Edges    []PlanEdge
}

// GraphLoader loads the workflow/node/edge snapshot a planner run consumes.
type GraphLoader interface {
	LoadGraph(ctx context.Context, workflowID core.ID) (*Graph, error)
}

// PlannerStore is the persistence boundary the planner writes through.
type PlannerStore interface {
	SaveInputs(ctx context.Context, inputs []*Input) error
	SaveFanout(ctx context.Context, executionID core.ID, fanout map[core.ID][]core.ID) error
	SaveExecution(ctx context.Context, e *Execution) error
}

// Planner materializes ExecutionInputs for a freshly created Execution (C8).
type Planner struct {
	loader GraphLoader
	store  PlannerStore
}

func NewPlanner(loader GraphLoader, store PlannerStore) *Planner {
	return &Planner{loader: loader, store: store}
}

// Plan loads the workflow graph, snapshots every node into an ExecutionInput
// with its in-degree, records the fanout table C10 needs, and marks the
// Execution RUNNING.
func (p *Planner) Plan(ctx context.Context, e *Execution) error {
	graph, err := p.loader.LoadGraph(ctx, e.WorkflowID)
	if err != nil {
		return err
	}

	inDegree := make(map[core.ID]int, len(graph.Nodes))
	fanout := make(map[core.ID][]core.ID, len(graph.Nodes))
	for _, n := range graph.Nodes {
		inDegree[n.ID] = 0
		fanout[n.ID] = nil
	}
	for _, edge := range graph.Edges {
		inDegree[edge.To]++
		fanout[edge.From] = append(fanout[edge.From], edge.To)
	}

	inputs := make([]*Input, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		in, err := NewInput(
			e.ID, n.ID, n.Name, n.ScriptName, n.ScriptPath,
			paramsToMap(n.Params), graph.Priority, inDegree[n.ID], n.MaxRetries, n.TimeoutSeconds,
		)
		if err != nil {
			return err
		}
		inputs = append(inputs, in)
	}

	if err := p.store.SaveInputs(ctx, inputs); err != nil {
		return err
	}
	if err := p.store.SaveFanout(ctx, e.ID, fanout); err != nil {
		return err
	}
	e.MarkRunning()
	return p.store.SaveExecution(ctx, e)
}

// paramsToMap preserves the still-reference-bearing param values verbatim;
// only the raw Value (and enough of Param to coerce later) is snapshotted
// onto the Input, consistent with params never being read from Node again.
func paramsToMap(params map[string]node.Param) map[string]any {
	out := make(map[string]any, len(params))
	for name, p := range params {
		out[name] = p
	}
	return out
}

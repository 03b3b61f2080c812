// Package edge models the Edge entity: a directed dependency between two
// Nodes in the same Workflow.
package edge

import (
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// Edge is a directed dependency FromNode -> ToNode within a Workflow (EDG-).
type Edge struct {
	ID         core.ID
	WorkflowID core.ID
	FromNode   core.ID
	ToNode     core.ID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New creates an Edge, rejecting self-loops.
func New(workflowID, fromNode, toNode core.ID) (*Edge, error) {
	if workflowID.IsZero() {
		return nil, fmt.Errorf("workflow id is required")
	}
	if fromNode.IsZero() || toNode.IsZero() {
		return nil, fmt.Errorf("from_node and to_node are required")
	}
	if fromNode == toNode {
		return nil, fmt.Errorf("edge cannot connect a node to itself")
	}
	id, err := core.NewID(core.PrefixEdge)
	if err != nil {
		return nil, fmt.Errorf("edge: %w", err)
	}
	now := time.Now().UTC()
	return &Edge{
		ID:         id,
		WorkflowID: workflowID,
		FromNode:   fromNode,
		ToNode:     toNode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Key uniquely identifies the (from_node, to_node) pair for duplicate
// detection within a workflow.
func (e *Edge) Key() [2]core.ID {
	return [2]core.ID{e.FromNode, e.ToNode}
}

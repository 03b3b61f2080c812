package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/edge"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/workflow"
	"github.com/jackc/pgx/v5"
)

const workflowColumnsSQL = "id, workspace_id, name, status, priority, created_at, updated_at, deleted_at"

// WorkflowRepo implements store.Workflows.
type WorkflowRepo struct{ db DB }

func NewWorkflowRepo(db DB) *WorkflowRepo { return &WorkflowRepo{db: db} }

func (r *WorkflowRepo) Create(ctx context.Context, wf *workflow.Workflow) error {
	query := `INSERT INTO workflows (` + workflowColumnsSQL + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query, wf.ID, wf.WorkspaceID, wf.Name, wf.Status, wf.Priority,
		wf.CreatedAt, wf.UpdatedAt, wf.DeletedAt)
	if err != nil {
		return fmt.Errorf("create workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepo) Get(ctx context.Context, id core.ID) (*workflow.Workflow, error) {
	query := `SELECT ` + workflowColumnsSQL + ` FROM workflows WHERE id = $1 AND deleted_at IS NULL`
	var wf workflow.Workflow
	err := r.db.QueryRow(ctx, query, id).Scan(
		&wf.ID, &wf.WorkspaceID, &wf.Name, &wf.Status, &wf.Priority,
		&wf.CreatedAt, &wf.UpdatedAt, &wf.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return &wf, nil
}

func (r *WorkflowRepo) ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*workflow.Workflow, error) {
	query := `SELECT ` + workflowColumnsSQL + ` FROM workflows
		WHERE workspace_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()
	var out []*workflow.Workflow
	for rows.Next() {
		var wf workflow.Workflow
		if err := rows.Scan(&wf.ID, &wf.WorkspaceID, &wf.Name, &wf.Status, &wf.Priority,
			&wf.CreatedAt, &wf.UpdatedAt, &wf.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, &wf)
	}
	return out, rows.Err()
}

func (r *WorkflowRepo) Update(ctx context.Context, wf *workflow.Workflow) error {
	query := `UPDATE workflows SET name=$2, status=$3, priority=$4, updated_at=$5, deleted_at=$6 WHERE id=$1`
	_, err := r.db.Exec(ctx, query, wf.ID, wf.Name, wf.Status, wf.Priority, wf.UpdatedAt, wf.DeletedAt)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	return nil
}

func (r *WorkflowRepo) CountByWorkspace(ctx context.Context, workspaceID core.ID) (int, error) {
	query := `SELECT count(*) FROM workflows WHERE workspace_id = $1 AND deleted_at IS NULL`
	var n int
	if err := r.db.QueryRow(ctx, query, workspaceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}

// NodeRepo implements store.Nodes.
type NodeRepo struct{ db DB }

func NewNodeRepo(db DB) *NodeRepo { return &NodeRepo{db: db} }

func (r *NodeRepo) Create(ctx context.Context, n *node.Node) error {
	params, err := ToJSONB(n.InputParams)
	if err != nil {
		return fmt.Errorf("encode node params: %w", err)
	}
	query := `INSERT INTO nodes (id, workflow_id, workspace_id, name, script_ref, custom_script_ref,
		input_params, max_retries, timeout_seconds, created_at, updated_at, deleted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err = r.db.Exec(ctx, query, n.ID, n.WorkflowID, n.WorkspaceID, n.Name, n.ScriptRef, n.CustomScriptRef,
		params, n.MaxRetries, n.TimeoutSeconds, n.CreatedAt, n.UpdatedAt, n.DeletedAt)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

func (r *NodeRepo) Get(ctx context.Context, id core.ID) (*node.Node, error) {
	query := `SELECT id, workflow_id, workspace_id, name, script_ref, custom_script_ref,
		input_params, max_retries, timeout_seconds, created_at, updated_at, deleted_at
		FROM nodes WHERE id = $1 AND deleted_at IS NULL`
	return r.scanRow(r.db.QueryRow(ctx, query, id))
}

func (r *NodeRepo) ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*node.Node, error) {
	query := `SELECT id, workflow_id, workspace_id, name, script_ref, custom_script_ref,
		input_params, max_retries, timeout_seconds, created_at, updated_at, deleted_at
		FROM nodes WHERE workflow_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()
	var out []*node.Node
	for rows.Next() {
		n, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NodeRepo) Update(ctx context.Context, n *node.Node) error {
	params, err := ToJSONB(n.InputParams)
	if err != nil {
		return fmt.Errorf("encode node params: %w", err)
	}
	query := `UPDATE nodes SET name=$2, script_ref=$3, custom_script_ref=$4, input_params=$5,
		max_retries=$6, timeout_seconds=$7, updated_at=$8, deleted_at=$9 WHERE id=$1`
	_, err = r.db.Exec(ctx, query, n.ID, n.Name, n.ScriptRef, n.CustomScriptRef, params,
		n.MaxRetries, n.TimeoutSeconds, n.UpdatedAt, n.DeletedAt)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	return nil
}

func (r *NodeRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `UPDATE nodes SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *NodeRepo) scanRow(row rowScanner) (*node.Node, error) {
	var n node.Node
	var params []byte
	if err := row.Scan(&n.ID, &n.WorkflowID, &n.WorkspaceID, &n.Name, &n.ScriptRef, &n.CustomScriptRef,
		&params, &n.MaxRetries, &n.TimeoutSeconds, &n.CreatedAt, &n.UpdatedAt, &n.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan node: %w", err)
	}
	var decoded *map[string]node.Param
	if err := FromJSONB(params, &decoded); err != nil {
		return nil, fmt.Errorf("decode node params: %w", err)
	}
	if decoded != nil {
		n.InputParams = *decoded
	}
	return &n, nil
}

// EdgeRepo implements store.Edges.
type EdgeRepo struct{ db DB }

func NewEdgeRepo(db DB) *EdgeRepo { return &EdgeRepo{db: db} }

func (r *EdgeRepo) Create(ctx context.Context, e *edge.Edge) error {
	query := `INSERT INTO edges (id, workflow_id, from_node, to_node, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.db.Exec(ctx, query, e.ID, e.WorkflowID, e.FromNode, e.ToNode, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create edge: %w", err)
	}
	return nil
}

func (r *EdgeRepo) ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*edge.Edge, error) {
	query := `SELECT id, workflow_id, from_node, to_node, created_at, updated_at
		FROM edges WHERE workflow_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()
	var out []*edge.Edge
	for rows.Next() {
		var e edge.Edge
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.FromNode, &e.ToNode, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *EdgeRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM edges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

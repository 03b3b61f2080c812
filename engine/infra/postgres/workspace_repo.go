package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/plan"
	"github.com/miniflow/miniflow/engine/workspace"
	"github.com/jackc/pgx/v5"
)

const workspaceColumnsSQL = "id, owner_user_id, name, slug, plan, is_suspended, " +
	"current_workflow_count, current_custom_script_count, current_storage_bytes, " +
	"current_api_key_count, created_at, updated_at, deleted_at"

// WorkspaceRepo implements store.Workspaces.
type WorkspaceRepo struct{ db DB }

func NewWorkspaceRepo(db DB) *WorkspaceRepo { return &WorkspaceRepo{db: db} }

func (r *WorkspaceRepo) Create(ctx context.Context, ws *workspace.Workspace) error {
	query := `INSERT INTO workspaces (` + workspaceColumnsSQL + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.db.Exec(ctx, query,
		ws.ID, ws.OwnerUserID, ws.Name, ws.Slug, ws.Plan, ws.IsSuspended,
		ws.CurrentWorkflowCount, ws.CurrentCustomScriptCount, ws.CurrentStorageBytes,
		ws.CurrentAPIKeyCount, ws.CreatedAt, ws.UpdatedAt, ws.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return nil
}

func (r *WorkspaceRepo) Get(ctx context.Context, id core.ID) (*workspace.Workspace, error) {
	query := `SELECT ` + workspaceColumnsSQL + ` FROM workspaces WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *WorkspaceRepo) GetBySlug(ctx context.Context, slug string) (*workspace.Workspace, error) {
	query := `SELECT ` + workspaceColumnsSQL + ` FROM workspaces WHERE slug = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, slug)
}

func (r *WorkspaceRepo) scanOne(ctx context.Context, query string, arg any) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	var planName string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&ws.ID, &ws.OwnerUserID, &ws.Name, &ws.Slug, &planName, &ws.IsSuspended,
		&ws.CurrentWorkflowCount, &ws.CurrentCustomScriptCount, &ws.CurrentStorageBytes,
		&ws.CurrentAPIKeyCount, &ws.CreatedAt, &ws.UpdatedAt, &ws.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	ws.Plan = plan.Name(planName)
	return &ws, nil
}

func (r *WorkspaceRepo) Update(ctx context.Context, ws *workspace.Workspace) error {
	query := `UPDATE workspaces SET name=$2, slug=$3, plan=$4, is_suspended=$5,
		current_workflow_count=$6, current_custom_script_count=$7, current_storage_bytes=$8,
		current_api_key_count=$9, updated_at=$10, deleted_at=$11 WHERE id=$1`
	_, err := r.db.Exec(ctx, query,
		ws.ID, ws.Name, ws.Slug, ws.Plan, ws.IsSuspended,
		ws.CurrentWorkflowCount, ws.CurrentCustomScriptCount, ws.CurrentStorageBytes,
		ws.CurrentAPIKeyCount, ws.UpdatedAt, ws.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	return nil
}

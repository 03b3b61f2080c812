package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/script"
	"github.com/jackc/pgx/v5"
)

// ScriptRepo implements store.Scripts.
type ScriptRepo struct{ db DB }

func NewScriptRepo(db DB) *ScriptRepo { return &ScriptRepo{db: db} }

const scriptColumnsSQL = "id, name, content, file_path, required_packages, input_schema, " +
	"output_schema, created_at, updated_at, deleted_at"

func (r *ScriptRepo) Get(ctx context.Context, id core.ID) (*script.Script, error) {
	query := `SELECT ` + scriptColumnsSQL + ` FROM scripts WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *ScriptRepo) GetByName(ctx context.Context, name string) (*script.Script, error) {
	query := `SELECT ` + scriptColumnsSQL + ` FROM scripts WHERE name = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, name)
}

func (r *ScriptRepo) scanOne(ctx context.Context, query string, arg any) (*script.Script, error) {
	var s script.Script
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Name, &s.Content, &s.FilePath, &s.RequiredPackages, &s.InputSchema,
		&s.OutputSchema, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get script: %w", err)
	}
	return &s, nil
}

// CustomScriptRepo implements store.CustomScripts.
type CustomScriptRepo struct{ db DB }

func NewCustomScriptRepo(db DB) *CustomScriptRepo { return &CustomScriptRepo{db: db} }

const customScriptColumnsSQL = "id, workspace_id, name, content, file_path, required_packages, " +
	"input_schema, output_schema, approval_status, test_status, created_at, updated_at, deleted_at"

func (r *CustomScriptRepo) Create(ctx context.Context, cs *script.CustomScript) error {
	query := `INSERT INTO custom_scripts (` + customScriptColumnsSQL + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.db.Exec(ctx, query,
		cs.ID, cs.WorkspaceID, cs.Name, cs.Content, cs.FilePath, cs.RequiredPackages,
		cs.InputSchema, cs.OutputSchema, cs.ApprovalStatus, cs.TestStatus,
		cs.CreatedAt, cs.UpdatedAt, cs.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create custom script: %w", err)
	}
	return nil
}

func (r *CustomScriptRepo) Get(ctx context.Context, id core.ID) (*script.CustomScript, error) {
	query := `SELECT ` + customScriptColumnsSQL + ` FROM custom_scripts WHERE id = $1 AND deleted_at IS NULL`
	return r.scanRow(r.db.QueryRow(ctx, query, id))
}

func (r *CustomScriptRepo) ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*script.CustomScript, error) {
	query := `SELECT ` + customScriptColumnsSQL + ` FROM custom_scripts
		WHERE workspace_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list custom scripts: %w", err)
	}
	defer rows.Close()
	var out []*script.CustomScript
	for rows.Next() {
		cs, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (r *CustomScriptRepo) Update(ctx context.Context, cs *script.CustomScript) error {
	query := `UPDATE custom_scripts SET name=$2, content=$3, file_path=$4, required_packages=$5,
		input_schema=$6, output_schema=$7, approval_status=$8, test_status=$9, updated_at=$10,
		deleted_at=$11 WHERE id=$1`
	_, err := r.db.Exec(ctx, query, cs.ID, cs.Name, cs.Content, cs.FilePath, cs.RequiredPackages,
		cs.InputSchema, cs.OutputSchema, cs.ApprovalStatus, cs.TestStatus, cs.UpdatedAt, cs.DeletedAt)
	if err != nil {
		return fmt.Errorf("update custom script: %w", err)
	}
	return nil
}

func (r *CustomScriptRepo) CountByWorkspace(ctx context.Context, workspaceID core.ID) (int, error) {
	var n int
	query := `SELECT count(*) FROM custom_scripts WHERE workspace_id = $1 AND deleted_at IS NULL`
	if err := r.db.QueryRow(ctx, query, workspaceID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count custom scripts: %w", err)
	}
	return n, nil
}

func (r *CustomScriptRepo) scanRow(row rowScanner) (*script.CustomScript, error) {
	var cs script.CustomScript
	if err := row.Scan(&cs.ID, &cs.WorkspaceID, &cs.Name, &cs.Content, &cs.FilePath, &cs.RequiredPackages,
		&cs.InputSchema, &cs.OutputSchema, &cs.ApprovalStatus, &cs.TestStatus,
		&cs.CreatedAt, &cs.UpdatedAt, &cs.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan custom script: %w", err)
	}
	return &cs, nil
}

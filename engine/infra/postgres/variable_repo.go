package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/secretbox"
	"github.com/miniflow/miniflow/engine/variable"
	"github.com/jackc/pgx/v5"
)

const variableColumnsSQL = "id, workspace_id, key, value, is_secret, created_at, updated_at, deleted_at"

// VariableRepo implements store.Variables and reference.Variables.
type VariableRepo struct {
	db  DB
	box *secretbox.Box
}

func NewVariableRepo(db DB, box *secretbox.Box) *VariableRepo {
	return &VariableRepo{db: db, box: box}
}

func (r *VariableRepo) Create(ctx context.Context, v *variable.Variable) error {
	query := `INSERT INTO variables (` + variableColumnsSQL + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.Exec(ctx, query, v.ID, v.WorkspaceID, v.Key, v.Value, v.IsSecret,
		v.CreatedAt, v.UpdatedAt, v.DeletedAt)
	if err != nil {
		return fmt.Errorf("create variable: %w", err)
	}
	return nil
}

func (r *VariableRepo) Get(ctx context.Context, id core.ID) (*variable.Variable, error) {
	query := `SELECT ` + variableColumnsSQL + ` FROM variables WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *VariableRepo) GetByKey(ctx context.Context, workspaceID core.ID, key string) (*variable.Variable, error) {
	query := `SELECT ` + variableColumnsSQL + ` FROM variables
		WHERE workspace_id = $1 AND key = $2 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, workspaceID, key)
}

func (r *VariableRepo) scanOne(ctx context.Context, query string, args ...any) (*variable.Variable, error) {
	var v variable.Variable
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&v.ID, &v.WorkspaceID, &v.Key, &v.Value, &v.IsSecret, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get variable: %w", err)
	}
	return &v, nil
}

func (r *VariableRepo) Update(ctx context.Context, v *variable.Variable) error {
	query := `UPDATE variables SET key=$2, value=$3, is_secret=$4, updated_at=$5, deleted_at=$6 WHERE id=$1`
	_, err := r.db.Exec(ctx, query, v.ID, v.Key, v.Value, v.IsSecret, v.UpdatedAt, v.DeletedAt)
	if err != nil {
		return fmt.Errorf("update variable: %w", err)
	}
	return nil
}

func (r *VariableRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `UPDATE variables SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete variable: %w", err)
	}
	return nil
}

// Reveal implements reference.Variables: it loads the variable by id within
// workspaceID and decrypts it if secret.
func (r *VariableRepo) Reveal(ctx context.Context, workspaceID, variableID core.ID) (string, error) {
	v, err := r.Get(ctx, variableID)
	if err != nil {
		return "", err
	}
	if v.WorkspaceID != workspaceID {
		return "", errNotFound
	}
	return v.Reveal(r.box)
}

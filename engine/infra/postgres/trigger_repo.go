package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/trigger"
	"github.com/jackc/pgx/v5"
)

// TriggerRepo implements store.Triggers.
type TriggerRepo struct{ db DB }

func NewTriggerRepo(db DB) *TriggerRepo { return &TriggerRepo{db: db} }

func (r *TriggerRepo) Create(ctx context.Context, t *trigger.Trigger) error {
	config, err := ToJSONB(t.Config)
	if err != nil {
		return fmt.Errorf("encode trigger config: %w", err)
	}
	mapping, err := ToJSONB(t.InputMapping)
	if err != nil {
		return fmt.Errorf("encode trigger input mapping: %w", err)
	}
	query := `INSERT INTO triggers (id, workflow_id, name, type, config, input_mapping, strict,
		is_enabled, is_default, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.db.Exec(ctx, query, t.ID, t.WorkflowID, t.Name, t.Type, config, mapping, t.Strict,
		t.IsEnabled, t.IsDefault, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create trigger: %w", err)
	}
	return nil
}

func (r *TriggerRepo) Get(ctx context.Context, id core.ID) (*trigger.Trigger, error) {
	query := `SELECT id, workflow_id, name, type, config, input_mapping, strict,
		is_enabled, is_default, created_at, updated_at FROM triggers WHERE id = $1`
	return r.scanRow(r.db.QueryRow(ctx, query, id))
}

func (r *TriggerRepo) ListByWorkflow(ctx context.Context, workflowID core.ID) ([]*trigger.Trigger, error) {
	query := `SELECT id, workflow_id, name, type, config, input_mapping, strict,
		is_enabled, is_default, created_at, updated_at FROM triggers
		WHERE workflow_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()
	var out []*trigger.Trigger
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TriggerRepo) Update(ctx context.Context, t *trigger.Trigger) error {
	config, err := ToJSONB(t.Config)
	if err != nil {
		return fmt.Errorf("encode trigger config: %w", err)
	}
	mapping, err := ToJSONB(t.InputMapping)
	if err != nil {
		return fmt.Errorf("encode trigger input mapping: %w", err)
	}
	query := `UPDATE triggers SET name=$2, type=$3, config=$4, input_mapping=$5, strict=$6,
		is_enabled=$7, updated_at=$8 WHERE id=$1`
	_, err = r.db.Exec(ctx, query, t.ID, t.Name, t.Type, config, mapping, t.Strict, t.IsEnabled, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	return nil
}

func (r *TriggerRepo) CountByWorkflow(ctx context.Context, workflowID core.ID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM triggers WHERE workflow_id = $1`, workflowID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count triggers: %w", err)
	}
	return n, nil
}

func (r *TriggerRepo) scanRow(row rowScanner) (*trigger.Trigger, error) {
	var t trigger.Trigger
	var config, mapping []byte
	if err := row.Scan(&t.ID, &t.WorkflowID, &t.Name, &t.Type, &config, &mapping, &t.Strict,
		&t.IsEnabled, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan trigger: %w", err)
	}
	var decodedConfig *map[string]any
	if err := FromJSONB(config, &decodedConfig); err != nil {
		return nil, fmt.Errorf("decode trigger config: %w", err)
	}
	if decodedConfig != nil {
		t.Config = *decodedConfig
	}
	var decodedMapping *map[string]trigger.FieldMapping
	if err := FromJSONB(mapping, &decodedMapping); err != nil {
		return nil, fmt.Errorf("decode trigger input mapping: %w", err)
	}
	if decodedMapping != nil {
		t.InputMapping = *decodedMapping
	}
	return &t, nil
}

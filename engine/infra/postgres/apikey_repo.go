package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/jackc/pgx/v5"
)

const apiKeyColumnsSQL = "id, workspace_id, name, key_hash, lookup_prefix, last_four, permissions, " +
	"allowed_ips, expires_at, is_active, usage_count, last_used_at, created_at, updated_at"

// APIKeyRepo implements store.APIKeys and auth.KeyStore.
type APIKeyRepo struct{ db DB }

func NewAPIKeyRepo(db DB) *APIKeyRepo { return &APIKeyRepo{db: db} }

func (r *APIKeyRepo) Create(ctx context.Context, k *apikey.APIKey) error {
	query := `INSERT INTO api_keys (` + apiKeyColumnsSQL + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.db.Exec(ctx, query, k.ID, k.WorkspaceID, k.Name, k.KeyHash, k.LookupPrefix, k.LastFour,
		k.Permissions, k.AllowedIPs, k.ExpiresAt, k.IsActive, k.UsageCount, k.LastUsedAt,
		k.CreatedAt, k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepo) Get(ctx context.Context, id core.ID) (*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumnsSQL + ` FROM api_keys WHERE id = $1`
	return r.scanRow(r.db.QueryRow(ctx, query, id))
}

func (r *APIKeyRepo) FindByLookupPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error) {
	query := `SELECT ` + apiKeyColumnsSQL + ` FROM api_keys WHERE lookup_prefix = $1`
	rows, err := r.db.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("find api keys by prefix: %w", err)
	}
	defer rows.Close()
	var out []*apikey.APIKey
	for rows.Next() {
		k, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *APIKeyRepo) RecordUsage(ctx context.Context, id core.ID) error {
	query := `UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = now() WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("record api key usage: %w", err)
	}
	return nil
}

func (r *APIKeyRepo) Update(ctx context.Context, k *apikey.APIKey) error {
	query := `UPDATE api_keys SET name=$2, permissions=$3, allowed_ips=$4, expires_at=$5,
		is_active=$6, updated_at=$7 WHERE id=$1`
	_, err := r.db.Exec(ctx, query, k.ID, k.Name, k.Permissions, k.AllowedIPs, k.ExpiresAt,
		k.IsActive, k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	return nil
}

func (r *APIKeyRepo) scanRow(row rowScanner) (*apikey.APIKey, error) {
	var k apikey.APIKey
	if err := row.Scan(&k.ID, &k.WorkspaceID, &k.Name, &k.KeyHash, &k.LookupPrefix, &k.LastFour,
		&k.Permissions, &k.AllowedIPs, &k.ExpiresAt, &k.IsActive, &k.UsageCount, &k.LastUsedAt,
		&k.CreatedAt, &k.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	return &k, nil
}

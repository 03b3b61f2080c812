package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/credential"
	"github.com/miniflow/miniflow/engine/secretbox"
	"github.com/jackc/pgx/v5"
)

const credentialColumnsSQL = "id, workspace_id, name, fields, secret_field, created_at, updated_at, deleted_at"

// CredentialRepo implements store.Credentials and reference.Credentials.
type CredentialRepo struct {
	db  DB
	box *secretbox.Box
}

func NewCredentialRepo(db DB, box *secretbox.Box) *CredentialRepo {
	return &CredentialRepo{db: db, box: box}
}

func (r *CredentialRepo) Create(ctx context.Context, c *credential.Credential) error {
	fields, err := ToJSONB(c.Fields)
	if err != nil {
		return fmt.Errorf("encode credential fields: %w", err)
	}
	query := `INSERT INTO credentials (` + credentialColumnsSQL + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = r.db.Exec(ctx, query, c.ID, c.WorkspaceID, c.Name, fields, c.SecretField,
		c.CreatedAt, c.UpdatedAt, c.DeletedAt)
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) Get(ctx context.Context, id core.ID) (*credential.Credential, error) {
	query := `SELECT ` + credentialColumnsSQL + ` FROM credentials WHERE id = $1 AND deleted_at IS NULL`
	var c credential.Credential
	var fields []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &fields, &c.SecretField, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	var decoded *map[string]string
	if err := FromJSONB(fields, &decoded); err != nil {
		return nil, fmt.Errorf("decode credential fields: %w", err)
	}
	if decoded != nil {
		c.Fields = *decoded
	}
	return &c, nil
}

func (r *CredentialRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `UPDATE credentials SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// AsMap implements reference.Credentials: fields plus the decrypted secret
// under the "secret" key.
func (r *CredentialRepo) AsMap(ctx context.Context, workspaceID, credentialID core.ID) (map[string]any, error) {
	c, err := r.Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if c.WorkspaceID != workspaceID {
		return nil, errNotFound
	}
	secret, err := c.Reveal(r.box)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	out["secret"] = secret
	return out, nil
}

const databaseColumnsSQL = "id, workspace_id, name, host, port, username, database_name, password, " +
	"created_at, updated_at, deleted_at"

// DatabaseRepo implements store.Databases and reference.Databases.
type DatabaseRepo struct {
	db  DB
	box *secretbox.Box
}

func NewDatabaseRepo(db DB, box *secretbox.Box) *DatabaseRepo {
	return &DatabaseRepo{db: db, box: box}
}

func (r *DatabaseRepo) Create(ctx context.Context, d *credential.Database) error {
	query := `INSERT INTO databases (` + databaseColumnsSQL + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.Exec(ctx, query, d.ID, d.WorkspaceID, d.Name, d.Host, d.Port, d.Username,
		d.DatabaseName, d.Password, d.CreatedAt, d.UpdatedAt, d.DeletedAt)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

func (r *DatabaseRepo) Get(ctx context.Context, id core.ID) (*credential.Database, error) {
	query := `SELECT ` + databaseColumnsSQL + ` FROM databases WHERE id = $1 AND deleted_at IS NULL`
	var d credential.Database
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.WorkspaceID, &d.Name, &d.Host, &d.Port, &d.Username, &d.DatabaseName,
		&d.Password, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get database: %w", err)
	}
	return &d, nil
}

func (r *DatabaseRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `UPDATE databases SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	return nil
}

// AsMap implements reference.Databases: connection fields plus the decrypted
// password under the "password" key.
func (r *DatabaseRepo) AsMap(ctx context.Context, workspaceID, databaseID core.ID) (map[string]any, error) {
	d, err := r.Get(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	if d.WorkspaceID != workspaceID {
		return nil, errNotFound
	}
	password, err := d.RevealPassword(r.box)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"host":          d.Host,
		"port":          d.Port,
		"username":      d.Username,
		"database_name": d.DatabaseName,
		"password":      password,
	}, nil
}

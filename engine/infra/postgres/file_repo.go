package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/file"
	"github.com/jackc/pgx/v5"
)

const fileColumnsSQL = "id, workspace_id, name, storage_path, content_type, size_bytes, checksum, " +
	"created_at, updated_at, deleted_at"

// FileRepo implements store.Files and reference.Files.
type FileRepo struct{ db DB }

func NewFileRepo(db DB) *FileRepo { return &FileRepo{db: db} }

func (r *FileRepo) Create(ctx context.Context, f *file.File) error {
	query := `INSERT INTO files (` + fileColumnsSQL + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.db.Exec(ctx, query, f.ID, f.WorkspaceID, f.Name, f.StoragePath, f.ContentType,
		f.SizeBytes, f.Checksum, f.CreatedAt, f.UpdatedAt, f.DeletedAt)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

func (r *FileRepo) Get(ctx context.Context, id core.ID) (*file.File, error) {
	query := `SELECT ` + fileColumnsSQL + ` FROM files WHERE id = $1 AND deleted_at IS NULL`
	var f file.File
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.WorkspaceID, &f.Name, &f.StoragePath, &f.ContentType, &f.SizeBytes, &f.Checksum,
		&f.CreatedAt, &f.UpdatedAt, &f.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

func (r *FileRepo) ListByWorkspace(ctx context.Context, workspaceID core.ID) ([]*file.File, error) {
	query := `SELECT ` + fileColumnsSQL + ` FROM files
		WHERE workspace_id = $1 AND deleted_at IS NULL ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var out []*file.File
	for rows.Next() {
		var f file.File
		if err := rows.Scan(&f.ID, &f.WorkspaceID, &f.Name, &f.StoragePath, &f.ContentType, &f.SizeBytes,
			&f.Checksum, &f.CreatedAt, &f.UpdatedAt, &f.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (r *FileRepo) Delete(ctx context.Context, id core.ID) error {
	_, err := r.db.Exec(ctx, `UPDATE files SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (r *FileRepo) SumSizeByWorkspace(ctx context.Context, workspaceID core.ID) (int64, error) {
	var total int64
	query := `SELECT coalesce(sum(size_bytes), 0) FROM files WHERE workspace_id = $1 AND deleted_at IS NULL`
	if err := r.db.QueryRow(ctx, query, workspaceID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum file sizes: %w", err)
	}
	return total, nil
}

// Metadata implements reference.Files.
func (r *FileRepo) Metadata(ctx context.Context, workspaceID, fileID core.ID) (map[string]any, error) {
	f, err := r.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.WorkspaceID != workspaceID {
		return nil, errNotFound
	}
	return map[string]any{
		"name":         f.Name,
		"content_type": f.ContentType,
		"size_bytes":   f.SizeBytes,
		"checksum":     f.Checksum,
	}, nil
}

// Content implements reference.Files, reading the artifact straight off
// StoragePath. The DESIGN.md ledger records why this stays local-disk rather
// than an object-store client.
func (r *FileRepo) Content(ctx context.Context, workspaceID, fileID core.ID) ([]byte, error) {
	f, err := r.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.WorkspaceID != workspaceID {
		return nil, errNotFound
	}
	data, err := os.ReadFile(f.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}
	return data, nil
}

// Package file models the workspace-scoped File entity: metadata plus an
// on-disk (or object-store) path.
package file

import (
	"fmt"
	"strings"
	"time"

	"github.com/miniflow/miniflow/engine/core"
)

// File is a workspace-scoped stored artifact (FIL-). Deletion removes both
// this record and the artifact at StoragePath; the store layer is
// responsible for doing both atomically.
type File struct {
	ID          core.ID
	WorkspaceID core.ID
	Name        string
	StoragePath string
	ContentType string
	SizeBytes   int64
	Checksum    string // hex sha256 of the stored bytes
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// New creates a File record.
func New(workspaceID core.ID, name, storagePath, contentType string, sizeBytes int64, checksum string) (*File, error) {
	if workspaceID.IsZero() {
		return nil, fmt.Errorf("workspace id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("file name cannot be empty")
	}
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if sizeBytes < 0 {
		return nil, fmt.Errorf("size bytes cannot be negative")
	}
	id, err := core.NewID(core.PrefixFile)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}
	now := time.Now().UTC()
	return &File{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        name,
		StoragePath: storagePath,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Checksum:    checksum,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// FitsQuota reports whether this file's size is within a plan's
// max-file-size limit (a negative limit means unlimited).
func (f *File) FitsQuota(maxFileSizeBytes int64) bool {
	if maxFileSizeBytes < 0 {
		return true
	}
	return f.SizeBytes <= maxFileSizeBytes
}

package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/file"
)

func TestFileRepo_SumSizeByWorkspace(t *testing.T) {
	t.Run("Should sum size_bytes across every non-deleted file", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewFileRepo(mockPool)
		workspaceID := core.MustNewID(core.PrefixWorkspace)
		mockPool.ExpectQuery("SELECT coalesce").
			WithArgs(workspaceID).
			WillReturnRows(mockPool.NewRows([]string{"sum"}).AddRow(int64(4096)))

		total, err := repo.SumSizeByWorkspace(context.Background(), workspaceID)
		require.NoError(t, err)
		assert.Equal(t, int64(4096), total)
	})
}

func TestFileRepo_Metadata(t *testing.T) {
	t.Run("Should refuse metadata for a file owned by a different workspace", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		f, err := file.New(core.MustNewID(core.PrefixWorkspace), "report.pdf", "/data/report.pdf", "application/pdf", 1024, "deadbeef")
		require.NoError(t, err)

		repo := NewFileRepo(mockPool)
		rows := mockPool.NewRows([]string{"id", "workspace_id", "name", "storage_path", "content_type", "size_bytes", "checksum", "created_at", "updated_at", "deleted_at"}).
			AddRow(f.ID, f.WorkspaceID, f.Name, f.StoragePath, f.ContentType, f.SizeBytes, f.Checksum, f.CreatedAt, f.UpdatedAt, f.DeletedAt)
		mockPool.ExpectQuery("SELECT (.+) FROM files WHERE id").WithArgs(f.ID).WillReturnRows(rows)

		_, err = repo.Metadata(context.Background(), core.MustNewID(core.PrefixWorkspace), f.ID)
		assert.ErrorIs(t, err, errNotFound)
	})
}

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
)

var fixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScriptRepo_GetByName(t *testing.T) {
	t.Run("Should find a script by its global name", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewScriptRepo(mockPool)
		id := core.MustNewID(core.PrefixScript)
		rows := mockPool.NewRows([]string{
			"id", "name", "content", "file_path", "required_packages", "input_schema",
			"output_schema", "created_at", "updated_at", "deleted_at",
		}).AddRow(
			id, "summarize", "print('hi')", "scripts/summarize.py", []string{}, []byte(`{}`),
			[]byte(`{}`), fixedTime, fixedTime, nil,
		)
		mockPool.ExpectQuery("SELECT (.+) FROM scripts WHERE name").WithArgs("summarize").WillReturnRows(rows)

		got, err := repo.GetByName(context.Background(), "summarize")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "scripts/summarize.py", got.FilePath)
	})

	t.Run("Should return errNotFound for an unknown name", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewScriptRepo(mockPool)
		mockPool.ExpectQuery("SELECT (.+) FROM scripts WHERE name").
			WithArgs("missing").
			WillReturnRows(mockPool.NewRows([]string{
				"id", "name", "content", "file_path", "required_packages", "input_schema",
				"output_schema", "created_at", "updated_at", "deleted_at",
			}))

		_, err = repo.GetByName(context.Background(), "missing")
		assert.ErrorIs(t, err, errNotFound)
	})
}

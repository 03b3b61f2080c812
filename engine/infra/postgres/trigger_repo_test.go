package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/trigger"
)

func TestTriggerRepo_CreateAndGet(t *testing.T) {
	t.Run("Should round-trip config and input mapping through JSONB columns", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewTriggerRepo(mockPool)
		workflowID := core.MustNewID(core.PrefixWorkflow)
		mapping := map[string]trigger.FieldMapping{"seed": {Type: trigger.FieldInteger, Required: true}}
		tr, err := trigger.New(workflowID, "on-demand", trigger.TypeWebhook,
			map[string]any{"defaults": map[string]any{"label": "x"}}, mapping, false)
		require.NoError(t, err)

		mockPool.ExpectExec("INSERT INTO triggers").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, repo.Create(context.Background(), tr))

		config, err := ToJSONB(tr.Config)
		require.NoError(t, err)
		encodedMapping, err := ToJSONB(tr.InputMapping)
		require.NoError(t, err)
		rows := mockPool.NewRows([]string{
			"id", "workflow_id", "name", "type", "config", "input_mapping", "strict",
			"is_enabled", "is_default", "created_at", "updated_at",
		}).AddRow(
			tr.ID, tr.WorkflowID, tr.Name, tr.Type, config, encodedMapping, tr.Strict,
			tr.IsEnabled, tr.IsDefault, tr.CreatedAt, tr.UpdatedAt,
		)
		mockPool.ExpectQuery("SELECT (.+) FROM triggers WHERE id").WithArgs(tr.ID).WillReturnRows(rows)

		got, err := repo.Get(context.Background(), tr.ID)
		require.NoError(t, err)
		assert.Equal(t, "on-demand", got.Name)
		assert.Equal(t, trigger.FieldInteger, got.InputMapping["seed"].Type)
		assert.Equal(t, "x", got.Config["defaults"].(map[string]any)["label"])
	})
}

func TestTriggerRepo_CountByWorkflow(t *testing.T) {
	t.Run("Should return the trigger count for a workflow", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		repo := NewTriggerRepo(mockPool)
		workflowID := core.MustNewID(core.PrefixWorkflow)
		mockPool.ExpectQuery("SELECT count(.+) FROM triggers").
			WithArgs(workflowID).
			WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(2))

		n, err := repo.CountByWorkflow(context.Background(), workflowID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

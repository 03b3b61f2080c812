package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
)

func newTestExecutionRepo(t *testing.T) (*ExecutionRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewExecutionRepo(mockPool), mockPool
}

func TestExecutionRepo_SaveAndLoadExecution(t *testing.T) {
	t.Run("Should round-trip an Execution through JSONB trigger data and results", func(t *testing.T) {
		repo, mockPool := newTestExecutionRepo(t)
		e, err := execution.New(core.MustNewID(core.PrefixWorkspace), core.MustNewID(core.PrefixWorkflow),
			core.MustNewID(core.PrefixTrigger), map[string]any{"seed": float64(1)}, time.Hour)
		require.NoError(t, err)

		mockPool.ExpectExec("INSERT INTO executions").WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, repo.SaveExecution(context.Background(), e))

		triggerData, err := ToJSONB(e.TriggerData)
		require.NoError(t, err)
		results, err := ToJSONB(e.Results)
		require.NoError(t, err)
		rows := mockPool.NewRows([]string{
			"id", "workspace_id", "workflow_id", "trigger_id", "status", "trigger_data", "results",
			"deadline", "cancelled_at", "started_at", "ended_at", "created_at", "updated_at",
		}).AddRow(
			e.ID, e.WorkspaceID, e.WorkflowID, e.TriggerID, e.Status, triggerData, results,
			e.Deadline, e.CancelledAt, e.StartedAt, e.EndedAt, e.CreatedAt, e.UpdatedAt,
		)
		mockPool.ExpectQuery("SELECT (.+) FROM executions WHERE id").WithArgs(e.ID).WillReturnRows(rows)

		got, err := repo.LoadExecution(context.Background(), e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.Status, got.Status)
		assert.Equal(t, float64(1), got.TriggerData["seed"])
	})

	t.Run("Should return errNotFound when the execution id is unknown", func(t *testing.T) {
		repo, mockPool := newTestExecutionRepo(t)
		id := core.MustNewID(core.PrefixExecution)
		mockPool.ExpectQuery("SELECT (.+) FROM executions WHERE id").
			WithArgs(id).
			WillReturnRows(mockPool.NewRows([]string{
				"id", "workspace_id", "workflow_id", "trigger_id", "status", "trigger_data", "results",
				"deadline", "cancelled_at", "started_at", "ended_at", "created_at", "updated_at",
			}))
		_, err := repo.LoadExecution(context.Background(), id)
		assert.ErrorIs(t, err, errNotFound)
	})
}

func TestExecutionRepo_AlreadyRecorded(t *testing.T) {
	t.Run("Should report true when an output already exists for the node", func(t *testing.T) {
		repo, mockPool := newTestExecutionRepo(t)
		executionID := core.MustNewID(core.PrefixExecution)
		nodeID := core.MustNewID(core.PrefixNode)
		mockPool.ExpectQuery("SELECT EXISTS").
			WithArgs(executionID, nodeID).
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(true))

		got, err := repo.AlreadyRecorded(context.Background(), executionID, nodeID)
		require.NoError(t, err)
		assert.True(t, got)
	})
}

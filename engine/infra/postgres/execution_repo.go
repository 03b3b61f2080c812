package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/engine/execution"
	"github.com/miniflow/miniflow/engine/node"
	"github.com/miniflow/miniflow/engine/scheduler"
	"github.com/jackc/pgx/v5"
)

// ExecutionRepo implements execution.GraphLoader, execution.PlannerStore,
// execution.Store (finalizer), scheduler.Store, collector.Store, and
// reference.NodeOutputs — the full execution-path persistence boundary,
// grounded on one shared `executions`/`execution_inputs`/`execution_outputs`
// table set plus an `execution_fanout` edge-snapshot table.
type ExecutionRepo struct{ db DB }

func NewExecutionRepo(db DB) *ExecutionRepo { return &ExecutionRepo{db: db} }

// LoadGraph implements execution.GraphLoader: one consistent read of a
// workflow's nodes, edges, and priority, with each node's script resolved
// to a concrete name/path.
func (r *ExecutionRepo) LoadGraph(ctx context.Context, workflowID core.ID) (*execution.Graph, error) {
	var priority int
	if err := r.db.QueryRow(ctx, `SELECT priority FROM workflows WHERE id = $1`, workflowID).
		Scan(&priority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("load workflow priority: %w", err)
	}

	nodeRows, err := r.db.Query(ctx, `SELECT id, script_ref, custom_script_ref, input_params,
		max_retries, timeout_seconds FROM nodes WHERE workflow_id = $1 AND deleted_at IS NULL`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []execution.PlanNode
	for nodeRows.Next() {
		var id, scriptRef, customScriptRef core.ID
		var paramsRaw []byte
		var maxRetries, timeoutSeconds int
		if err := nodeRows.Scan(&id, &scriptRef, &customScriptRef, &paramsRaw, &maxRetries, &timeoutSeconds); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		var params map[string]node.Param
		if err := json.Unmarshal(paramsRaw, &params); err != nil && len(paramsRaw) > 0 {
			return nil, fmt.Errorf("decode node params: %w", err)
		}
		name, path, err := r.resolveScript(ctx, scriptRef, customScriptRef)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, execution.PlanNode{
			ID:             id,
			Name:           name,
			ScriptName:     name,
			ScriptPath:     path,
			Params:         params,
			MaxRetries:     maxRetries,
			TimeoutSeconds: timeoutSeconds,
		})
	}
	if err := nodeRows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := r.db.Query(ctx, `SELECT from_node, to_node FROM edges WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer edgeRows.Close()
	var edges []execution.PlanEdge
	for edgeRows.Next() {
		var e execution.PlanEdge
		if err := edgeRows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	return &execution.Graph{Priority: priority, Nodes: nodes, Edges: edges}, nil
}

func (r *ExecutionRepo) resolveScript(ctx context.Context, scriptRef, customScriptRef core.ID) (name, path string, err error) {
	if !scriptRef.IsZero() {
		err = r.db.QueryRow(ctx, `SELECT name, file_path FROM scripts WHERE id = $1`, scriptRef).Scan(&name, &path)
	} else {
		err = r.db.QueryRow(ctx, `SELECT name, file_path FROM custom_scripts WHERE id = $1`, customScriptRef).
			Scan(&name, &path)
	}
	if err != nil {
		return "", "", fmt.Errorf("resolve script: %w", err)
	}
	return name, path, nil
}

// SaveInputs implements execution.PlannerStore.
func (r *ExecutionRepo) SaveInputs(ctx context.Context, inputs []*execution.Input) error {
	for _, in := range inputs {
		params, err := ToJSONB(in.Params)
		if err != nil {
			return fmt.Errorf("encode input params: %w", err)
		}
		query := `INSERT INTO execution_inputs (id, execution_id, node_id, node_name, script_name,
			script_path, params, priority, dependency_count, max_retries, timeout_seconds, status,
			claimed_at, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
		_, err = r.db.Exec(ctx, query, in.ID, in.ExecutionID, in.NodeID, in.NodeName, in.ScriptName,
			in.ScriptPath, params, in.Priority, in.DependencyCount, in.MaxRetries, in.TimeoutSeconds,
			in.Status, in.ClaimedAt, in.CreatedAt)
		if err != nil {
			return fmt.Errorf("save input: %w", err)
		}
	}
	return nil
}

// SaveFanout implements execution.PlannerStore, persisting the (execution,
// from_node, to_node) snapshot the collector decrements against.
func (r *ExecutionRepo) SaveFanout(ctx context.Context, executionID core.ID, fanout map[core.ID][]core.ID) error {
	for from, tos := range fanout {
		for _, to := range tos {
			query := `INSERT INTO execution_fanout (execution_id, from_node, to_node) VALUES ($1,$2,$3)`
			if _, err := r.db.Exec(ctx, query, executionID, from, to); err != nil {
				return fmt.Errorf("save fanout: %w", err)
			}
		}
	}
	return nil
}

// SaveExecution implements execution.PlannerStore and execution.Store.
func (r *ExecutionRepo) SaveExecution(ctx context.Context, e *execution.Execution) error {
	triggerData, err := ToJSONB(e.TriggerData)
	if err != nil {
		return fmt.Errorf("encode trigger data: %w", err)
	}
	results, err := ToJSONB(e.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	query := `INSERT INTO executions (id, workspace_id, workflow_id, trigger_id, status, trigger_data,
		results, deadline, cancelled_at, started_at, ended_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET status=$5, results=$7, cancelled_at=$9, started_at=$10,
		ended_at=$11, updated_at=$13`
	_, err = r.db.Exec(ctx, query, e.ID, e.WorkspaceID, e.WorkflowID, e.TriggerID, e.Status,
		triggerData, results, e.Deadline, e.CancelledAt, e.StartedAt, e.EndedAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}
	return nil
}

// LoadExecution implements collector.Store.
func (r *ExecutionRepo) LoadExecution(ctx context.Context, executionID core.ID) (*execution.Execution, error) {
	return r.loadExecution(ctx, r.db, executionID)
}

func (r *ExecutionRepo) loadExecution(ctx context.Context, q DB, executionID core.ID) (*execution.Execution, error) {
	query := `SELECT id, workspace_id, workflow_id, trigger_id, status, trigger_data, results,
		deadline, cancelled_at, started_at, ended_at, created_at, updated_at
		FROM executions WHERE id = $1`
	var e execution.Execution
	var triggerData, results []byte
	err := q.QueryRow(ctx, query, executionID).Scan(
		&e.ID, &e.WorkspaceID, &e.WorkflowID, &e.TriggerID, &e.Status, &triggerData, &results,
		&e.Deadline, &e.CancelledAt, &e.StartedAt, &e.EndedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("load execution: %w", err)
	}
	var decodedTrigger *map[string]any
	if err := FromJSONB(triggerData, &decodedTrigger); err != nil {
		return nil, fmt.Errorf("decode trigger data: %w", err)
	}
	if decodedTrigger != nil {
		e.TriggerData = *decodedTrigger
	}
	var decodedResults *map[string]execution.NodeResult
	if err := FromJSONB(results, &decodedResults); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if decodedResults != nil {
		e.Results = *decodedResults
	}
	return &e, nil
}

// LoadPlanSnapshot implements execution.Store (finalizer).
func (r *ExecutionRepo) LoadPlanSnapshot(ctx context.Context, executionID core.ID) (*execution.PlanSnapshot, error) {
	idRows, err := r.db.Query(ctx, `SELECT node_id FROM execution_inputs WHERE execution_id = $1
		UNION SELECT node_id FROM execution_outputs WHERE execution_id = $1`, executionID, executionID)
	if err != nil {
		return nil, fmt.Errorf("load planned node ids: %w", err)
	}
	seen := map[core.ID]bool{}
	var planned []core.ID
	for idRows.Next() {
		var id core.ID
		if err := idRows.Scan(&id); err != nil {
			idRows.Close()
			return nil, fmt.Errorf("scan planned node id: %w", err)
		}
		if !seen[id] {
			seen[id] = true
			planned = append(planned, id)
		}
	}
	idRows.Close()
	if err := idRows.Err(); err != nil {
		return nil, err
	}

	outputs, err := r.loadOutputs(ctx, executionID)
	if err != nil {
		return nil, err
	}

	unreachableRows, err := r.db.Query(ctx,
		`SELECT node_id FROM execution_unreachable WHERE execution_id = $1`, executionID)
	if err != nil {
		return nil, fmt.Errorf("load unreachable nodes: %w", err)
	}
	defer unreachableRows.Close()
	unreachable := map[core.ID]bool{}
	for unreachableRows.Next() {
		var id core.ID
		if err := unreachableRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unreachable node: %w", err)
		}
		unreachable[id] = true
	}
	if err := unreachableRows.Err(); err != nil {
		return nil, err
	}

	return &execution.PlanSnapshot{PlannedNodeIDs: planned, Outputs: outputs, Unreachable: unreachable}, nil
}

func (r *ExecutionRepo) loadOutputs(ctx context.Context, executionID core.ID) (map[core.ID]*execution.Output, error) {
	rows, err := r.db.Query(ctx, `SELECT id, execution_id, node_id, status, result_data, duration_ms,
		error_message, error_details, created_at FROM execution_outputs WHERE execution_id = $1`, executionID)
	if err != nil {
		return nil, fmt.Errorf("load outputs: %w", err)
	}
	defer rows.Close()
	out := map[core.ID]*execution.Output{}
	for rows.Next() {
		o, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		out[o.NodeID] = o
	}
	return out, rows.Err()
}

// DeleteInputsAndOutputs implements execution.Store (finalizer).
func (r *ExecutionRepo) DeleteInputsAndOutputs(ctx context.Context, executionID core.ID) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM execution_inputs WHERE execution_id = $1`, executionID); err != nil {
			return fmt.Errorf("delete inputs: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM execution_outputs WHERE execution_id = $1`, executionID); err != nil {
			return fmt.Errorf("delete outputs: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM execution_fanout WHERE execution_id = $1`, executionID); err != nil {
			return fmt.Errorf("delete fanout: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM execution_unreachable WHERE execution_id = $1`, executionID); err != nil {
			return fmt.Errorf("delete unreachable: %w", err)
		}
		return nil
	})
}

// CountConcurrent counts workspaceID's non-terminal executions, backing the
// quota accountant's concurrent-execution check at trigger-admission time.
func (r *ExecutionRepo) CountConcurrent(ctx context.Context, workspaceID core.ID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM executions WHERE workspace_id = $1 AND status IN ($2, $3)`,
		workspaceID, execution.StatusPending, execution.StatusRunning,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count concurrent executions: %w", err)
	}
	return count, nil
}

// EmitTerminalEvent implements execution.Store (finalizer), writing a
// notify event a webhook-dispatch worker can later pick up.
func (r *ExecutionRepo) EmitTerminalEvent(ctx context.Context, e *execution.Execution) error {
	payload, err := ToJSONB(map[string]any{"execution_id": e.ID, "status": e.Status})
	if err != nil {
		return fmt.Errorf("encode terminal event: %w", err)
	}
	query := `INSERT INTO execution_events (execution_id, event_type, payload, created_at)
		VALUES ($1, 'TERMINAL', $2, now())`
	if _, err := r.db.Exec(ctx, query, e.ID, payload); err != nil {
		return fmt.Errorf("emit terminal event: %w", err)
	}
	return nil
}

// ClaimReady implements scheduler.Store: atomically marks up to batchSize
// READY inputs IN_FLIGHT, highest priority then oldest first.
func (r *ExecutionRepo) ClaimReady(ctx context.Context, batchSize int) ([]*scheduler.ClaimedInput, error) {
	var claimed []*scheduler.ClaimedInput
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM execution_inputs
			WHERE status = 'READY' AND dependency_count = 0
			ORDER BY priority DESC, created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED`, batchSize)
		if err != nil {
			return fmt.Errorf("select claimable inputs: %w", err)
		}
		var ids []core.ID
		for rows.Next() {
			var id core.ID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan claimable input id: %w", err)
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, id := range ids {
			ci, err := r.claimOne(ctx, tx, id)
			if err != nil {
				return err
			}
			claimed = append(claimed, ci)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *ExecutionRepo) claimOne(ctx context.Context, tx pgx.Tx, id core.ID) (*scheduler.ClaimedInput, error) {
	var in execution.Input
	var paramsRaw []byte
	query := `SELECT id, execution_id, node_id, node_name, script_name, script_path, params, priority,
		dependency_count, max_retries, timeout_seconds, status, claimed_at, created_at
		FROM execution_inputs WHERE id = $1`
	if err := tx.QueryRow(ctx, query, id).Scan(
		&in.ID, &in.ExecutionID, &in.NodeID, &in.NodeName, &in.ScriptName, &in.ScriptPath, &paramsRaw,
		&in.Priority, &in.DependencyCount, &in.MaxRetries, &in.TimeoutSeconds, &in.Status,
		&in.ClaimedAt, &in.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("load input to claim: %w", err)
	}
	var params map[string]node.Param
	if err := json.Unmarshal(paramsRaw, &params); err != nil && len(paramsRaw) > 0 {
		return nil, fmt.Errorf("decode claimed input params: %w", err)
	}
	in.Claim()
	if _, err := tx.Exec(ctx, `UPDATE execution_inputs SET status = $2, claimed_at = $3 WHERE id = $1`,
		in.ID, in.Status, in.ClaimedAt); err != nil {
		return nil, fmt.Errorf("mark input in-flight: %w", err)
	}

	var workspaceID, workflowID core.ID
	var triggerDataRaw []byte
	if err := tx.QueryRow(ctx,
		`SELECT e.workspace_id, e.workflow_id, e.trigger_data FROM executions e WHERE e.id = $1`,
		in.ExecutionID).Scan(&workspaceID, &workflowID, &triggerDataRaw); err != nil {
		return nil, fmt.Errorf("load execution context for claim: %w", err)
	}
	var triggerData map[string]any
	if err := json.Unmarshal(triggerDataRaw, &triggerData); err != nil && len(triggerDataRaw) > 0 {
		return nil, fmt.Errorf("decode trigger data for claim: %w", err)
	}

	return &scheduler.ClaimedInput{
		Input:       &in,
		WorkspaceID: workspaceID,
		WorkflowID:  workflowID,
		TriggerData: triggerData,
		Params:      params,
	}, nil
}

// DeleteInput implements scheduler.Store.
func (r *ExecutionRepo) DeleteInput(ctx context.Context, inputID core.ID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM execution_inputs WHERE id = $1`, inputID); err != nil {
		return fmt.Errorf("delete input: %w", err)
	}
	return nil
}

// RecordFailure implements scheduler.Store: a synthetic FAILED output for a
// resolution failure that never reached the worker runtime.
func (r *ExecutionRepo) RecordFailure(
	ctx context.Context, executionID, nodeID core.ID, errMessage string, errDetails map[string]any,
) error {
	out, err := execution.NewOutput(executionID, nodeID, execution.OutputFailed, nil, 0, errMessage, errDetails)
	if err != nil {
		return err
	}
	_, err = r.WriteOutput(ctx, out)
	if err != nil {
		return err
	}
	return r.CancelUnreachable(ctx, executionID, nodeID)
}

// AlreadyRecorded implements collector.Store.
func (r *ExecutionRepo) AlreadyRecorded(ctx context.Context, executionID, nodeID core.ID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM execution_outputs WHERE execution_id = $1 AND node_id = $2)`
	if err := r.db.QueryRow(ctx, query, executionID, nodeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check already recorded: %w", err)
	}
	return exists, nil
}

// WriteOutput implements collector.Store: inserts the output and decrements
// dependency_count on every downstream input recorded in the fanout
// snapshot, all within one transaction, returning inputs that became ready.
func (r *ExecutionRepo) WriteOutput(ctx context.Context, out *execution.Output) ([]core.ID, error) {
	var ready []core.ID
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		resultData, err := ToJSONB(out.ResultData)
		if err != nil {
			return fmt.Errorf("encode output result data: %w", err)
		}
		errDetails, err := ToJSONB(out.ErrorDetails)
		if err != nil {
			return fmt.Errorf("encode output error details: %w", err)
		}
		insert := `INSERT INTO execution_outputs (id, execution_id, node_id, status, result_data,
			duration_ms, error_message, error_details, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
		_, err = tx.Exec(ctx, insert, out.ID, out.ExecutionID, out.NodeID, out.Status, resultData,
			out.Duration.Milliseconds(), out.ErrorMessage, errDetails, out.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert output: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT to_node FROM execution_fanout
			WHERE execution_id = $1 AND from_node = $2`, out.ExecutionID, out.NodeID)
		if err != nil {
			return fmt.Errorf("load fanout: %w", err)
		}
		var downstream []core.ID
		for rows.Next() {
			var to core.ID
			if err := rows.Scan(&to); err != nil {
				rows.Close()
				return fmt.Errorf("scan fanout target: %w", err)
			}
			downstream = append(downstream, to)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, nodeID := range downstream {
			var becameReady bool
			decrement := `UPDATE execution_inputs SET dependency_count = dependency_count - 1,
				status = CASE WHEN dependency_count - 1 <= 0 THEN 'READY' ELSE status END
				WHERE node_id = $1 AND execution_id = $2 AND dependency_count > 0
				RETURNING status = 'READY'`
			err := tx.QueryRow(ctx, decrement, nodeID, out.ExecutionID).Scan(&becameReady)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("decrement dependency: %w", err)
			}
			if becameReady {
				var id core.ID
				if err := tx.QueryRow(ctx, `SELECT id FROM execution_inputs
					WHERE node_id = $1 AND execution_id = $2`, nodeID, out.ExecutionID).Scan(&id); err != nil {
					return fmt.Errorf("load readied input id: %w", err)
				}
				ready = append(ready, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ready, nil
}

// CancelUnreachable implements collector.Store: marks every input
// transitively downstream of failedNodeID as unreachable and removes it
// from the claimable set.
func (r *ExecutionRepo) CancelUnreachable(ctx context.Context, executionID, failedNodeID core.ID) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		frontier := []core.ID{failedNodeID}
		seen := map[core.ID]bool{}
		for len(frontier) > 0 {
			next := frontier[0]
			frontier = frontier[1:]
			rows, err := tx.Query(ctx, `SELECT to_node FROM execution_fanout
				WHERE execution_id = $1 AND from_node = $2`, executionID, next)
			if err != nil {
				return fmt.Errorf("load downstream fanout: %w", err)
			}
			var children []core.ID
			for rows.Next() {
				var to core.ID
				if err := rows.Scan(&to); err != nil {
					rows.Close()
					return fmt.Errorf("scan downstream node: %w", err)
				}
				children = append(children, to)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			for _, child := range children {
				if seen[child] {
					continue
				}
				seen[child] = true
				if _, err := tx.Exec(ctx, `INSERT INTO execution_unreachable (execution_id, node_id)
					VALUES ($1, $2) ON CONFLICT DO NOTHING`, executionID, child); err != nil {
					return fmt.Errorf("mark unreachable: %w", err)
				}
				if _, err := tx.Exec(ctx, `DELETE FROM execution_inputs
					WHERE execution_id = $1 AND node_id = $2`, executionID, child); err != nil {
					return fmt.Errorf("remove unreachable input: %w", err)
				}
				frontier = append(frontier, child)
			}
		}
		return nil
	})
}

// SuccessResult implements reference.NodeOutputs.
func (r *ExecutionRepo) SuccessResult(ctx context.Context, executionID, nodeID core.ID) (map[string]any, bool, error) {
	query := `SELECT status, result_data FROM execution_outputs WHERE execution_id = $1 AND node_id = $2`
	var status execution.OutputStatus
	var raw []byte
	err := r.db.QueryRow(ctx, query, executionID, nodeID).Scan(&status, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load node output: %w", err)
	}
	if status != execution.OutputSuccess {
		return nil, false, nil
	}
	var decoded *map[string]any
	if err := FromJSONB(raw, &decoded); err != nil {
		return nil, false, fmt.Errorf("decode node result data: %w", err)
	}
	if decoded == nil {
		return map[string]any{}, true, nil
	}
	return *decoded, true, nil
}

func durationMSToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func scanOutput(row rowScanner) (*execution.Output, error) {
	var o execution.Output
	var durationMS int64
	var resultData, errDetails []byte
	if err := row.Scan(&o.ID, &o.ExecutionID, &o.NodeID, &o.Status, &resultData, &durationMS,
		&o.ErrorMessage, &errDetails, &o.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan output: %w", err)
	}
	o.Duration = durationMSToDuration(durationMS)
	var decodedResult *map[string]any
	if err := FromJSONB(resultData, &decodedResult); err != nil {
		return nil, fmt.Errorf("decode output result data: %w", err)
	}
	if decodedResult != nil {
		o.ResultData = *decodedResult
	}
	var decodedDetails *map[string]any
	if err := FromJSONB(errDetails, &decodedDetails); err != nil {
		return nil, fmt.Errorf("decode output error details: %w", err)
	}
	if decodedDetails != nil {
		o.ErrorDetails = *decodedDetails
	}
	return &o, nil
}

package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// RunRepository is the SQL run ledger. Runs outlive their workflow.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

const runColumns = `id, workflow_id, status, started_at, completed_at, failure_reason, failure_detail, event, actions_attempted, actions_succeeded, actions_failed`

func (rr *RunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	var event sql.NullString

	if run.Event != nil {
		body, err := json.Marshal(run.Event)
		if err != nil {
			return persistence.NewRunError("CreateRun", run.ID, persistence.StorageError("marshal event", err))
		}

		event = sql.NullString{String: string(body), Valid: true}
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, status, started_at, completed_at, failure_reason, failure_detail, event, actions_attempted, actions_succeeded, actions_failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := rr.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		string(run.Status),
		run.StartedAt.UTC(),
		nullTime(run.CompletedAt),
		run.FailureReason,
		run.FailureDetail,
		event,
		run.ActionsAttempted,
		run.ActionsSucceeded,
		run.ActionsFailed,
	)
	if err != nil {
		return persistence.NewRunError("CreateRun", run.ID, persistence.StorageError("insert run", err))
	}

	return nil
}

func (rr *RunRepository) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	row := rr.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM workflow_runs WHERE id = $1", runID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetRun", runID, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetRun", runID, persistence.StorageError("scan run", err))
	}

	return run, nil
}

// ListRuns returns the most recent runs of a workflow first.
func (rr *RunRepository) ListRuns(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := rr.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM workflow_runs WHERE workflow_id = $1 ORDER BY started_at DESC, id LIMIT $2",
		workflowID, limit)
	if err != nil {
		return nil, persistence.StorageError("query runs", err)
	}
	defer closeRows(ctx, rr.logger, rows)

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, persistence.StorageError("scan run", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.StorageError("iterate runs", err)
	}

	return runs, nil
}

// FinishRun writes the outcome only while the run is still RUNNING.
func (rr *RunRepository) FinishRun(ctx context.Context, runID string, outcome models.RunOutcome) error {
	query := `
		UPDATE workflow_runs SET
			status = $1,
			completed_at = $2,
			failure_reason = $3,
			failure_detail = $4,
			actions_attempted = $5,
			actions_succeeded = $6,
			actions_failed = $7
		WHERE id = $8 AND status = $9
	`

	result, err := rr.db.ExecContext(ctx, query,
		string(outcome.Status),
		outcome.CompletedAt.UTC(),
		outcome.FailureReason,
		outcome.FailureDetail,
		outcome.ActionsAttempted,
		outcome.ActionsSucceeded,
		outcome.ActionsFailed,
		runID,
		string(models.RunStatusRunning),
	)
	if err != nil {
		return persistence.NewRunError("FinishRun", runID, persistence.StorageError("update run", err))
	}

	if err := requireAffected(result, persistence.ErrRunAlreadyFinished); err != nil {
		if _, getErr := rr.GetRun(ctx, runID); getErr != nil {
			return getErr
		}

		return persistence.NewRunError("FinishRun", runID, err)
	}

	return nil
}

func scanRun(row scanner) (*models.WorkflowRun, error) {
	var (
		run         models.WorkflowRun
		status      string
		completedAt sql.NullTime
		event       []byte
	)

	err := row.Scan(
		&run.ID,
		&run.WorkflowID,
		&status,
		&run.StartedAt,
		&completedAt,
		&run.FailureReason,
		&run.FailureDetail,
		&event,
		&run.ActionsAttempted,
		&run.ActionsSucceeded,
		&run.ActionsFailed,
	)
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)
	run.StartedAt = run.StartedAt.UTC()

	if completedAt.Valid {
		at := completedAt.Time.UTC()
		run.CompletedAt = &at
	}

	if len(event) > 0 {
		run.Event = &models.InboundEvent{}
		if err := json.Unmarshal(event, run.Event); err != nil {
			return nil, err
		}
	}

	return &run, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

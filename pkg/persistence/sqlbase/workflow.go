package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `id, name, description, status, triggers_count, actions_count, failure_policy, owner, created_at, updated_at`

// ListWorkflows returns paginated and filtered workflows.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	var (
		conditions []string
		args       []any
	)

	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		conditions = append(conditions, fmt.Sprintf("owner = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows"+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, persistence.StorageError("count workflows", err)
	}

	// Sort fields are whitelisted by Normalize.
	query := fmt.Sprintf("SELECT %s FROM workflows%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d",
		workflowColumns, where, opts.SortBy, strings.ToUpper(opts.SortOrder), len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, persistence.StorageError("query workflows", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0, opts.Limit)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, persistence.StorageError("scan workflow", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.StorageError("iterate workflows", err)
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(workflows)) < totalCount,
	}, nil
}

// GetByID retrieves a workflow by its ID.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, persistence.StorageError("scan workflow", err))
	}

	return workflow, nil
}

// Save upserts the workflow row. Counters are left to AdjustCounts and ReplaceGraph.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflows (id, name, description, status, triggers_count, actions_count, failure_policy, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			failure_policy = EXCLUDED.failure_policy,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		string(workflow.Status),
		string(workflow.FailurePolicy),
		workflow.Owner,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, persistence.StorageError("save workflow", err))
	}

	stored, err := r.GetByID(ctx, workflow.ID)
	if err != nil {
		return err
	}

	workflow.TriggersCount = stored.TriggersCount
	workflow.ActionsCount = stored.ActionsCount
	workflow.CreatedAt = stored.CreatedAt

	return nil
}

// Delete removes the workflow, its nodes and its edges in one transaction.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.StorageError("begin delete", err)
	}
	defer rollback(ctx, r.logger, tx)

	for _, stmt := range []string{
		"DELETE FROM edges WHERE workflow_id = $1",
		"DELETE FROM nodes WHERE workflow_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return persistence.NewWorkflowError("Delete", id, persistence.StorageError("delete graph", err))
		}
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.StorageError("delete workflow", err))
	}

	if err := requireAffected(result, persistence.ErrWorkflowNotFound); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.StorageError("commit delete", err)
	}

	return nil
}

func (r *WorkflowRepository) AdjustCounts(ctx context.Context, id string, triggersDelta, actionsDelta int) error {
	query := `
		UPDATE workflows SET
			triggers_count = CASE WHEN triggers_count + $1 < 0 THEN 0 ELSE triggers_count + $1 END,
			actions_count = CASE WHEN actions_count + $2 < 0 THEN 0 ELSE actions_count + $2 END,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.ExecContext(ctx, query, triggersDelta, actionsDelta, time.Now().UTC(), id)
	if err != nil {
		return persistence.NewWorkflowError("AdjustCounts", id, persistence.StorageError("adjust counts", err))
	}

	if err := requireAffected(result, persistence.ErrWorkflowNotFound); err != nil {
		return persistence.NewWorkflowError("AdjustCounts", id, err)
	}

	return nil
}

func (r *WorkflowRepository) ReplaceGraph(ctx context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.StorageError("begin replace graph", err)
	}
	defer rollback(ctx, r.logger, tx)

	now := time.Now().UTC()
	triggers, actions := 0, 0

	for _, stmt := range []string{
		"DELETE FROM edges WHERE workflow_id = $1",
		"DELETE FROM nodes WHERE workflow_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, stmt, workflowID); err != nil {
			return persistence.NewWorkflowError("ReplaceGraph", workflowID, persistence.StorageError("clear graph", err))
		}
	}

	for _, node := range nodes {
		node.WorkflowID = workflowID
		if node.CreatedAt.IsZero() {
			node.CreatedAt = now
		}

		node.UpdatedAt = now

		if err := upsertNode(ctx, tx, node); err != nil {
			return persistence.NewNodeError("ReplaceGraph", workflowID, node.ID, err)
		}

		switch node.Kind {
		case models.NodeKindTrigger:
			triggers++
		case models.NodeKindAction:
			actions++
		}
	}

	for _, edge := range edges {
		edge.WorkflowID = workflowID
		if edge.CreatedAt.IsZero() {
			edge.CreatedAt = now
		}

		if err := upsertEdge(ctx, tx, edge); err != nil {
			return persistence.NewEdgeError("ReplaceGraph", workflowID, edge.ID, err)
		}
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE workflows SET triggers_count = $1, actions_count = $2, updated_at = $3 WHERE id = $4",
		triggers, actions, now, workflowID)
	if err != nil {
		return persistence.NewWorkflowError("ReplaceGraph", workflowID, persistence.StorageError("update counts", err))
	}

	if err := requireAffected(result, persistence.ErrWorkflowNotFound); err != nil {
		return persistence.NewWorkflowError("ReplaceGraph", workflowID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.StorageError("commit replace graph", err)
	}

	return nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow      models.Workflow
		status        string
		failurePolicy string
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&status,
		&workflow.TriggersCount,
		&workflow.ActionsCount,
		&failurePolicy,
		&workflow.Owner,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Status = models.WorkflowStatus(status)
	workflow.FailurePolicy = models.FailurePolicy(failurePolicy)
	workflow.CreatedAt = workflow.CreatedAt.UTC()
	workflow.UpdatedAt = workflow.UpdatedAt.UTC()

	return &workflow, nil
}

// requireAffected returns notFound when an UPDATE or DELETE matched nothing.
func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.StorageError("rows affected", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}

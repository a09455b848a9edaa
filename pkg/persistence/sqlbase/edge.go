package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// EdgeRepository handles edge-related database operations.
type EdgeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEdgeRepository creates a new edge repository.
func NewEdgeRepository(db *sql.DB, logger *slog.Logger) *EdgeRepository {
	return &EdgeRepository{db: db, logger: logger}
}

const edgeColumns = `id, workflow_id, source_node_id, target_node_id, label, condition_tag, created_at`

// GetEdgesByWorkflow returns edges in creation order, which is the traversal order.
func (er *EdgeRepository) GetEdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.Edge, error) {
	if err := workflowExists(ctx, er.db, workflowID); err != nil {
		return nil, persistence.NewWorkflowError("GetEdgesByWorkflow", workflowID, err)
	}

	rows, err := er.db.QueryContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE workflow_id = $1 ORDER BY created_at, id", workflowID)
	if err != nil {
		return nil, persistence.StorageError("query edges", err)
	}
	defer closeRows(ctx, er.logger, rows)

	edges := make([]*models.Edge, 0)

	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, persistence.StorageError("scan edge", err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.StorageError("iterate edges", err)
	}

	return edges, nil
}

func (er *EdgeRepository) GetEdgeByWorkflow(ctx context.Context, workflowID, edgeID string) (*models.Edge, error) {
	row := er.db.QueryRowContext(ctx,
		"SELECT "+edgeColumns+" FROM edges WHERE workflow_id = $1 AND id = $2", workflowID, edgeID)

	edge, err := scanEdge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewEdgeError("GetEdgeByWorkflow", workflowID, edgeID, persistence.ErrEdgeNotFound)
		}

		return nil, persistence.NewEdgeError("GetEdgeByWorkflow", workflowID, edgeID, persistence.StorageError("scan edge", err))
	}

	return edge, nil
}

func (er *EdgeRepository) SaveEdge(ctx context.Context, edge *models.Edge) error {
	if err := workflowExists(ctx, er.db, edge.WorkflowID); err != nil {
		return persistence.NewEdgeError("SaveEdge", edge.WorkflowID, edge.ID, err)
	}

	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	if err := upsertEdge(ctx, er.db, edge); err != nil {
		return persistence.NewEdgeError("SaveEdge", edge.WorkflowID, edge.ID, err)
	}

	return nil
}

func (er *EdgeRepository) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	result, err := er.db.ExecContext(ctx, "DELETE FROM edges WHERE workflow_id = $1 AND id = $2", workflowID, edgeID)
	if err != nil {
		return persistence.NewEdgeError("DeleteEdge", workflowID, edgeID, persistence.StorageError("delete edge", err))
	}

	if err := requireAffected(result, persistence.ErrEdgeNotFound); err != nil {
		return persistence.NewEdgeError("DeleteEdge", workflowID, edgeID, err)
	}

	return nil
}

func (er *EdgeRepository) DeleteEdgesMatching(ctx context.Context, workflowID, nodeID string) (int, error) {
	result, err := er.db.ExecContext(ctx,
		"DELETE FROM edges WHERE workflow_id = $1 AND (source_node_id = $2 OR target_node_id = $2)",
		workflowID, nodeID)
	if err != nil {
		return 0, persistence.StorageError("delete edges", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, persistence.StorageError("rows affected", err)
	}

	return int(affected), nil
}

func upsertEdge(ctx context.Context, db execer, edge *models.Edge) error {
	query := `
		INSERT INTO edges (id, workflow_id, source_node_id, target_node_id, label, condition_tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			source_node_id = EXCLUDED.source_node_id,
			target_node_id = EXCLUDED.target_node_id,
			label = EXCLUDED.label,
			condition_tag = EXCLUDED.condition_tag
	`

	_, err := db.ExecContext(ctx, query,
		edge.ID,
		edge.WorkflowID,
		edge.SourceNodeID,
		edge.TargetNodeID,
		edge.Label,
		edge.Condition,
		edge.CreatedAt,
	)
	if err != nil {
		return persistence.StorageError("save edge", err)
	}

	return nil
}

func scanEdge(row scanner) (*models.Edge, error) {
	var edge models.Edge

	err := row.Scan(
		&edge.ID,
		&edge.WorkflowID,
		&edge.SourceNodeID,
		&edge.TargetNodeID,
		&edge.Label,
		&edge.Condition,
		&edge.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	edge.CreatedAt = edge.CreatedAt.UTC()

	return &edge, nil
}

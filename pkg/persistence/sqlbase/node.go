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

// NodeRepository handles node-related database operations.
type NodeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNodeRepository creates a new node repository.
func NewNodeRepository(db *sql.DB, logger *slog.Logger) *NodeRepository {
	return &NodeRepository{db: db, logger: logger}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const nodeColumns = `id, workflow_id, kind, label, position_x, position_y, config, created_at, updated_at`

// GetNodesByWorkflow retrieves all nodes of a workflow in creation order.
func (nr *NodeRepository) GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error) {
	if err := workflowExists(ctx, nr.db, workflowID); err != nil {
		return nil, persistence.NewWorkflowError("GetNodesByWorkflow", workflowID, err)
	}

	rows, err := nr.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE workflow_id = $1 ORDER BY created_at, id", workflowID)
	if err != nil {
		return nil, persistence.StorageError("query nodes", err)
	}
	defer closeRows(ctx, nr.logger, rows)

	nodes := make([]*models.Node, 0)

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, persistence.StorageError("scan node", err)
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.StorageError("iterate nodes", err)
	}

	return nodes, nil
}

func (nr *NodeRepository) GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	row := nr.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE workflow_id = $1 AND id = $2", workflowID, nodeID)

	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, persistence.ErrNodeNotFound)
		}

		return nil, persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, persistence.StorageError("scan node", err))
	}

	return node, nil
}

// SaveNode saves a node to the database (insert or update).
func (nr *NodeRepository) SaveNode(ctx context.Context, node *models.Node) error {
	if err := workflowExists(ctx, nr.db, node.WorkflowID); err != nil {
		return persistence.NewNodeError("SaveNode", node.WorkflowID, node.ID, err)
	}

	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}

	node.UpdatedAt = now

	if err := upsertNode(ctx, nr.db, node); err != nil {
		return persistence.NewNodeError("SaveNode", node.WorkflowID, node.ID, err)
	}

	return nil
}

// DeleteNode removes the node and every edge touching it.
func (nr *NodeRepository) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	tx, err := nr.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.StorageError("begin delete node", err)
	}
	defer rollback(ctx, nr.logger, tx)

	_, err = tx.ExecContext(ctx,
		"DELETE FROM edges WHERE workflow_id = $1 AND (source_node_id = $2 OR target_node_id = $2)",
		workflowID, nodeID)
	if err != nil {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.StorageError("delete edges", err))
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE workflow_id = $1 AND id = $2", workflowID, nodeID)
	if err != nil {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.StorageError("delete node", err))
	}

	if err := requireAffected(result, persistence.ErrNodeNotFound); err != nil {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.StorageError("commit delete node", err)
	}

	return nil
}

func upsertNode(ctx context.Context, db execer, node *models.Node) error {
	config := node.Config
	if config == nil {
		config = models.NodeConfig{}
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return persistence.StorageError("marshal node config", err)
	}

	query := `
		INSERT INTO nodes (id, workflow_id, kind, label, position_x, position_y, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			label = EXCLUDED.label,
			position_x = EXCLUDED.position_x,
			position_y = EXCLUDED.position_y,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		node.ID,
		node.WorkflowID,
		string(node.Kind),
		node.Label,
		node.Position.X,
		node.Position.Y,
		string(configJSON),
		node.CreatedAt,
		node.UpdatedAt,
	)
	if err != nil {
		return persistence.StorageError("save node", err)
	}

	return nil
}

func scanNode(row scanner) (*models.Node, error) {
	var (
		node       models.Node
		kind       string
		configJSON []byte
	)

	err := row.Scan(
		&node.ID,
		&node.WorkflowID,
		&kind,
		&node.Label,
		&node.Position.X,
		&node.Position.Y,
		&configJSON,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	node.Kind = models.NodeKind(kind)
	node.Config = models.NodeConfig{}
	node.CreatedAt = node.CreatedAt.UTC()
	node.UpdatedAt = node.UpdatedAt.UTC()

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &node.Config); err != nil {
			return nil, err
		}
	}

	return &node, nil
}

func workflowExists(ctx context.Context, db queryer, workflowID string) error {
	var one int

	err := db.QueryRowContext(ctx, "SELECT 1 FROM workflows WHERE id = $1", workflowID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrWorkflowNotFound
		}

		return persistence.StorageError("lookup workflow", err)
	}

	return nil
}

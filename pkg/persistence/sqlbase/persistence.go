package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a database/sql handle.
// Drivers open the handle, run their migrations and wrap this type.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflowRepo *WorkflowRepository
	nodeRepo     *NodeRepository
	edgeRepo     *EdgeRepository
	runRepo      *RunRepository
}

func NewPersistence(db *sql.DB, logger *slog.Logger) *Persistence {
	return &Persistence{
		db:           db,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(db, logger),
		nodeRepo:     NewNodeRepository(db, logger),
		edgeRepo:     NewEdgeRepository(db, logger),
		runRepo:      NewRunRepository(db, logger),
	}
}

// DB exposes the underlying handle for drivers and tests.
func (p *Persistence) DB() *sql.DB {
	return p.db
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return persistence.StorageError("ping database", err)
	}

	return nil
}

// nolint:ireturn
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// nolint:ireturn
func (p *Persistence) NodeRepository() persistence.NodeRepository {
	return p.nodeRepo
}

// nolint:ireturn
func (p *Persistence) EdgeRepository() persistence.EdgeRepository {
	return p.edgeRepo
}

// nolint:ireturn
func (p *Persistence) RunRepository() persistence.RunRepository {
	return p.runRepo
}

type scanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if closeErr := rows.Close(); closeErr != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
	}
}

func rollback(ctx context.Context, logger *slog.Logger, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.ErrorContext(ctx, "failed to rollback transaction", "error", err)
	}
}

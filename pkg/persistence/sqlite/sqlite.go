// Package sqlite provides an embedded SQLite persistence implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/persistence/sqlbase"
	_ "github.com/mattn/go-sqlite3"
)

// Persistence implements the persistence layer for SQLite.
type Persistence struct {
	*sqlbase.Persistence
}

// NewPersistence opens (or creates) the database file and migrates the schema.
// The URL may carry a sqlite:// prefix.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	dsn := strings.TrimPrefix(databaseURL, "sqlite://")
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows a single writer.
	database.SetMaxOpenConns(1)

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	err = sqlbase.NewMigrationManager(logger, database, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{Persistence: sqlbase.NewPersistence(database, logger)}, nil
}

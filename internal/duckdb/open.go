package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	duckdbDriver "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/errors"
)

// OpenDB opens a DuckDB database file, creating its directory if needed.
// An empty path or ":memory:" opens an in-memory database.
func OpenDB(path string) (*sql.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = ""
	}
	if dsn != "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connector, err := duckdbDriver.NewConnector(dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return sql.OpenDB(connector), nil
}

// Migrate runs schema statements in one transaction.
func Migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger, statements []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer errors.DeferRollback(logger, tx)

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

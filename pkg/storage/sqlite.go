package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DefaultDatabaseName is the registry file inside the config directory
const DefaultDatabaseName = "llmflow.db"

// NewSQLiteProviderStore opens (creating if needed) a SQLite registry at
// dbPath.
func NewSQLiteProviderStore(ctx context.Context, dbPath string) (*SQLProviderStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return newSQLProviderStore(ctx, db, DriverSQLite)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// MigrationVersion tracks the current database schema version.
const MigrationVersion = 1

// Driver names a supported database/sql driver
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverMySQL  Driver = "mysql"
)

// ParseDriver converts a config value to a Driver
func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case DriverSQLite, "":
		return DriverSQLite, nil
	case DriverMySQL:
		return DriverMySQL, nil
	default:
		return "", fmt.Errorf("unsupported registry driver: %q", s)
	}
}

// dialect holds the DDL that differs between drivers
type dialect struct {
	migrationsTable string
	providersTable  string
}

var dialects = map[Driver]dialect{
	DriverSQLite: {
		migrationsTable: `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		providersTable: `
		CREATE TABLE providers (
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			credential_ref TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (provider, model)
		);`,
	},
	DriverMySQL: {
		migrationsTable: `
		CREATE TABLE IF NOT EXISTS migrations (
			id INT AUTO_INCREMENT PRIMARY KEY,
			version INT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
		providersTable: `
		CREATE TABLE providers (
			provider VARCHAR(191) NOT NULL,
			model VARCHAR(191) NOT NULL,
			credential_ref VARCHAR(255) NOT NULL DEFAULT '',
			position INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (provider, model)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
	},
}

// InitializeDatabase creates the model registry schema, recording applied
// versions in a migrations table.
func InitializeDatabase(ctx context.Context, db *sql.DB, driver Driver) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported registry driver: %q", driver)
	}

	if _, err := db.ExecContext(ctx, d.migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	if currentVersion < 1 {
		if err := applyMigration1(ctx, db, d); err != nil {
			return fmt.Errorf("failed to apply migration 1: %w", err)
		}
	}

	return nil
}

// applyMigration1 creates the providers table
func applyMigration1(ctx context.Context, db *sql.DB, d dialect) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, d.providersTable); err != nil {
		return fmt.Errorf("failed to create providers table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/validation"
)

// ErrProviderExists is returned when adding a provider/model pair twice
var ErrProviderExists = errors.New("provider already registered")

// SQLProviderStore is the model registry backed by database/sql. Rows keep
// insertion order, which is the order the editor lists models in.
type SQLProviderStore struct {
	db     *sql.DB
	driver Driver
}

var _ models.Lister = (*SQLProviderStore)(nil)

// OpenProviderStore opens the registry for the configured driver. For
// sqlite the dsn is a database file path.
func OpenProviderStore(ctx context.Context, driver Driver, dsn string) (*SQLProviderStore, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteProviderStore(ctx, dsn)
	case DriverMySQL:
		return NewMySQLProviderStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported registry driver: %q", driver)
	}
}

func newSQLProviderStore(ctx context.Context, db *sql.DB, driver Driver) (*SQLProviderStore, error) {
	if err := InitializeDatabase(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &SQLProviderStore{db: db, driver: driver}, nil
}

// Driver returns the driver the store was opened with
func (s *SQLProviderStore) Driver() Driver {
	return s.driver
}

// Close closes the database connection.
func (s *SQLProviderStore) Close() error {
	return s.db.Close()
}

// ListProviders returns every provider in registration order
func (s *SQLProviderStore) ListProviders(ctx context.Context) ([]models.Provider, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT provider, model, credential_ref FROM providers ORDER BY position, provider, model")
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	providers := make([]models.Provider, 0)
	for rows.Next() {
		var p models.Provider
		if err := rows.Scan(&p.ProviderName, &p.Model, &p.CredentialRef); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}
	return providers, nil
}

// Get returns a single provider
func (s *SQLProviderStore) Get(ctx context.Context, provider, model string) (models.Provider, error) {
	p := models.Provider{ProviderName: provider, Model: model}
	err := s.db.QueryRowContext(ctx,
		"SELECT credential_ref FROM providers WHERE provider = ? AND model = ?",
		provider, model).Scan(&p.CredentialRef)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Provider{}, fmt.Errorf("%s/%s: %w", provider, model, models.ErrProviderNotFound)
	}
	if err != nil {
		return models.Provider{}, fmt.Errorf("failed to query provider: %w", err)
	}
	return p, nil
}

// Add appends a provider to the end of the list
func (s *SQLProviderStore) Add(ctx context.Context, p models.Provider) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.CredentialRef != "" && !validation.IsValidIdentifier(p.CredentialRef) {
		return fmt.Errorf("invalid credential reference: %q", p.CredentialRef)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM providers WHERE provider = ? AND model = ?",
		p.ProviderName, p.Model).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check provider: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%s: %w", p.ID(), ErrProviderExists)
	}

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), 0) + 1 FROM providers").Scan(&position); err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO providers (provider, model, credential_ref, position) VALUES (?, ?, ?, ?)",
		p.ProviderName, p.Model, p.CredentialRef, position)
	if err != nil {
		return fmt.Errorf("failed to insert provider: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit provider: %w", err)
	}
	return nil
}

// Remove deletes a provider. It returns models.ErrProviderNotFound if the
// pair is not registered.
func (s *SQLProviderStore) Remove(ctx context.Context, provider, model string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM providers WHERE provider = ? AND model = ?", provider, model)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", provider, model, models.ErrProviderNotFound)
	}
	return nil
}

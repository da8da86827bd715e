package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var baseSchema string

// migrations[i] upgrades a database from version i to i+1.
var migrations = []string{
	baseSchema,
	`CREATE INDEX IF NOT EXISTS idx_jobs_input_path ON jobs(input_path);`,
}

// ErrSchemaMismatch is returned when the database was written by a newer ffkit.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func schemaVersion() int { return len(migrations) }

func (s *Store) initSchema(ctx context.Context) error {
	current, err := s.currentVersion(ctx)
	if err != nil {
		return err
	}
	if current > schemaVersion() {
		return fmt.Errorf("%w: database has version %d, this build supports %d (upgrade ffkit or delete %s)",
			ErrSchemaMismatch, current, schemaVersion(), s.path)
	}
	for version := current; version < schemaVersion(); version++ {
		if err := s.migrate(ctx, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) currentVersion(ctx context.Context) (int, error) {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// migrate applies migrations[from] and records from+1 in one transaction.
func (s *Store) migrate(ctx context.Context, from int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", from+1, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrations[from]); err != nil {
		return fmt.Errorf("apply migration %d: %w", from+1, err)
	}
	record := "UPDATE schema_version SET version = ?"
	if from == 0 {
		record = "INSERT INTO schema_version (version) VALUES (?)"
	}
	if _, err := tx.ExecContext(ctx, record, from+1); err != nil {
		return fmt.Errorf("record schema version %d: %w", from+1, err)
	}
	return tx.Commit()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/transcat/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(tx *sql.Tx, table string) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial category record schema",
		Up: func(tx *sql.Tx, table string) error {
			_, err := tx.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY,
				description TEXT NOT NULL,
				category TEXT,
				amount TEXT NOT NULL,
				operation_date TIMESTAMP NOT NULL,
				type TEXT NOT NULL DEFAULT ''
			)`, table))
			return err
		},
	},
	{
		Version:     2,
		Description: "Index descriptions for exact-match lookups",
		Up: func(tx *sql.Tx, table string) error {
			queries := []string{
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_description ON %s(description)`, table, table),
				fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_category ON %s(category)`, table, table),
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate brings the record table up to ExpectedSchemaVersion. Versions are
// tracked per table in schema_migrations so several tables can share a database.
func (s *Store) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		table_name TEXT PRIMARY KEY,
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", common.WrapStoreError(err))
	}

	currentVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", common.WrapStoreError(txErr))
		}

		if upErr := migration.Up(tx, s.table); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM schema_migrations WHERE table_name = ?`), s.table); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}
		if _, execErr := tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO schema_migrations (table_name, version) VALUES (?, ?)`), s.table, migration.Version); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"table", s.table,
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the applied migration version of the record table,
// 0 if none.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.schemaVersion(ctx)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT version FROM schema_migrations WHERE table_name = ?`), s.table).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", common.WrapStoreError(err))
	}
	return version, nil
}

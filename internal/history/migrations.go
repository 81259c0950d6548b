package history

import (
	"context"
	"database/sql"
	"fmt"

	"fjacquet/fiscal-organizer/internal/logging"
)

// ExpectedSchemaVersion is the schema version this build writes.
const ExpectedSchemaVersion = 1

// Migration is one forward-only schema step.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					company TEXT NOT NULL,
					tax_id TEXT,
					status TEXT NOT NULL,
					error TEXT,
					archive_size INTEGER DEFAULT 0
				)`,
				`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
				`CREATE TABLE IF NOT EXISTS run_documents (
					run_id TEXT NOT NULL,
					position INTEGER NOT NULL,
					name TEXT NOT NULL,
					category TEXT,
					path TEXT,
					error TEXT,
					source TEXT,
					PRIMARY KEY (run_id, position),
					FOREIGN KEY (run_id) REFERENCES runs(id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_run_documents_category ON run_documents(category)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies every pending migration, one transaction each.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		s.logger.Info("Applied history migration",
			logging.F("version", m.Version),
			logging.F("description", m.Description))
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("history schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, final)
	}
	return nil
}

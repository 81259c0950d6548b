package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/fiscal-organizer/internal/logging"
	"fjacquet/fiscal-organizer/internal/models"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	logger logging.Logger
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteStore(ctx context.Context, dbPath string, logger logging.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), models.PermissionDirectory); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		logger: logger.WithField(logging.FieldComponent, "history"),
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record appends a run and its document outcomes atomically.
func (s *SQLiteStore) Record(ctx context.Context, run models.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run record has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, company, tax_id, status, error, archive_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Company,
		run.TaxID, run.Status, run.Error, run.ArchiveSize)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_documents (run_id, position, name, source, category, path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, d := range run.Documents {
		if _, err := stmt.ExecContext(ctx, run.ID, i, d.Name, d.Source, string(d.Category), d.Path, d.Error); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", d.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}

	s.logger.Debug("Recorded run",
		logging.F(logging.FieldRunID, run.ID),
		logging.F(logging.FieldStatus, run.Status),
		logging.F(logging.FieldCount, len(run.Documents)))
	return nil
}

// List returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := `SELECT id, started_at, finished_at, company, tax_id, status, error, archive_size
		FROM runs ORDER BY started_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	var runs []models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	_ = rows.Close()

	// Documents are loaded after the cursor is closed: the pool holds one connection.
	for i := range runs {
		docs, err := s.documents(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Documents = docs
	}
	return runs, nil
}

// Get returns one run by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, company, tax_id, status, error, archive_size
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	run.Documents, err = s.documents(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (models.RunRecord, error) {
	var (
		run          models.RunRecord
		taxID, cause sql.NullString
	)
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Company,
		&taxID, &run.Status, &cause, &run.ArchiveSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return run, err
		}
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.TaxID = taxID.String
	run.Error = cause.String
	return run, nil
}

func (s *SQLiteStore) documents(ctx context.Context, runID string) ([]models.DocumentOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, source, category, path, error
		FROM run_documents WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents of run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []models.DocumentOutcome
	for rows.Next() {
		var (
			d                            models.DocumentOutcome
			source, category, path, fail sql.NullString
		)
		if err := rows.Scan(&d.Name, &source, &category, &path, &fail); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Source = source.String
		d.Category = models.Category(category.String)
		d.Path = path.String
		d.Error = fail.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

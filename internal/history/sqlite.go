package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/report"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the history database at dbPath, creating it if needed.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create history directory").
				WithContext("path", dbPath).
				Build()
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "open history database").
			WithContext("path", dbPath).
			Build()
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.WrapError(err, errors.CategoryStorage, "initialize history schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		started INTEGER NOT NULL,
		ended INTEGER NOT NULL,
		state TEXT NOT NULL,
		outcome TEXT NOT NULL,
		revision TEXT,
		pages INTEGER NOT NULL,
		entities INTEGER NOT NULL,
		critical INTEGER NOT NULL,
		issues INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS issues (
		run_id TEXT NOT NULL,
		ord INTEGER NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		page TEXT,
		file TEXT,
		line INTEGER,
		message TEXT NOT NULL,
		PRIMARY KEY (run_id, ord)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores r and its issues in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "begin history transaction").Build()
	}
	defer func() { _ = tx.Rollback() }()

	issues := r.Issues()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started, ended, state, outcome, revision, pages, entities, critical, issues)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Start.UnixMilli(), r.End.UnixMilli(), r.State, string(r.Outcome), r.Revision,
		r.Pages, r.Entities, r.Counts[report.SeverityCritical], len(issues),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "insert run").
			WithContext("run_id", r.RunID).
			Build()
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO issues (run_id, ord, severity, category, page, file, line, message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "prepare issue insert").Build()
	}
	defer func() { _ = stmt.Close() }()

	for i, is := range issues {
		if _, err := stmt.ExecContext(ctx, r.RunID, i, string(is.Severity), string(is.Category), is.Page, is.File, is.Line, is.Message); err != nil {
			return errors.WrapError(err, errors.CategoryStorage, "insert issue").
				WithContext("run_id", r.RunID).
				Build()
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "commit history transaction").Build()
	}
	return nil
}

const runColumns = "run_id, started, ended, state, outcome, revision, pages, entities, critical, issues"

// Latest returns the newest stored run that is not excludeRunID.
func (s *SQLiteStore) Latest(ctx context.Context, excludeRunID string) (Run, []report.Issue, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE run_id != ? ORDER BY seq DESC LIMIT 1", excludeRunID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, nil, false, nil
	}
	if err != nil {
		return Run{}, nil, false, errors.WrapError(err, errors.CategoryStorage, "query latest run").Build()
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT severity, category, page, file, line, message FROM issues WHERE run_id = ? ORDER BY ord", run.ID)
	if err != nil {
		return Run{}, nil, false, errors.WrapError(err, errors.CategoryStorage, "query issues").Build()
	}
	defer func() { _ = rows.Close() }()

	var issues []report.Issue
	for rows.Next() {
		var is report.Issue
		var page, file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&is.Severity, &is.Category, &page, &file, &line, &is.Message); err != nil {
			return Run{}, nil, false, errors.WrapError(err, errors.CategoryStorage, "scan issue").Build()
		}
		is.Page, is.File, is.Line = page.String, file.String, int(line.Int64)
		issues = append(issues, is)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, false, errors.WrapError(err, errors.CategoryStorage, "iterate issues").Build()
	}
	return run, issues, true, nil
}

// Runs lists up to limit runs, newest first.
func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY seq DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "query runs").Build()
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryStorage, "scan run").Build()
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "iterate runs").Build()
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var started, ended int64
	var outcome string
	var revision sql.NullString
	err := row.Scan(&run.ID, &started, &ended, &run.State, &outcome, &revision,
		&run.Pages, &run.Entities, &run.Critical, &run.Issues)
	if err != nil {
		return Run{}, err
	}
	run.Start = time.UnixMilli(started).UTC()
	run.End = time.UnixMilli(ended).UTC()
	run.Outcome = report.Outcome(outcome)
	run.Revision = revision.String
	return run, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

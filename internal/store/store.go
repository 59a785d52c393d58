// Package store keeps a SQLite history of processing runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	wildtag "github.com/anatolykoptev/go-wildtag"
)

// ErrRunNotFound is returned by RunResults for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored processing run.
type Run struct {
	ID            string
	Mode          string
	InputDir      string
	StartedAt     time.Time
	FinishedAt    time.Time
	Total         int
	Successful    int
	Failed        int
	Accepted      int
	AvgConfidence float64
}

// ImageRecord is one stored image result.
type ImageRecord struct {
	RunID        string
	OriginalName string
	NewName      string
	Category     string
	Confidence   float64
	Accepted     bool
	Success      bool
	Features     []string
	DuplicateOf  string
	Error        string
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens the database at path and creates the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id             TEXT PRIMARY KEY,
		mode           TEXT NOT NULL,
		input_dir      TEXT DEFAULT '',
		started_at     DATETIME NOT NULL,
		finished_at    DATETIME NOT NULL,
		total          INTEGER NOT NULL DEFAULT 0,
		successful     INTEGER NOT NULL DEFAULT 0,
		failed         INTEGER NOT NULL DEFAULT 0,
		accepted       INTEGER NOT NULL DEFAULT 0,
		avg_confidence REAL NOT NULL DEFAULT 0,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS image_results (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL REFERENCES runs(id),
		position      INTEGER NOT NULL,
		original_name TEXT NOT NULL,
		new_name      TEXT DEFAULT '',
		category      TEXT DEFAULT '',
		confidence    REAL NOT NULL DEFAULT 0,
		accepted      INTEGER NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL DEFAULT 0,
		features      TEXT DEFAULT '',
		duplicate_of  TEXT DEFAULT '',
		error         TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_image_results_run ON image_results(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores b and its image results under id in one transaction.
func (s *Store) SaveRun(ctx context.Context, id string, b wildtag.BatchResult) (Run, error) {
	stats := b.Analyze()
	run := Run{
		ID:            id,
		Mode:          b.Mode.String(),
		InputDir:      b.InputDir,
		StartedAt:     b.StartedAt.UTC(),
		FinishedAt:    b.FinishedAt.UTC(),
		Total:         stats.Total,
		Successful:    stats.Successful,
		Failed:        stats.Failed,
		Accepted:      stats.Accepted,
		AvgConfidence: stats.AvgConfidence,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, input_dir, started_at, finished_at, total, successful, failed, accepted, avg_confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.InputDir, run.StartedAt, run.FinishedAt,
		run.Total, run.Successful, run.Failed, run.Accepted, run.AvgConfidence,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO image_results (run_id, position, original_name, new_name, category, confidence, accepted, success, features, duplicate_of, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return Run{}, err
	}
	defer stmt.Close()

	for i, r := range b.Results {
		_, err := stmt.ExecContext(ctx,
			run.ID, i, r.OriginalName, r.NewName, r.Category, r.Confidence,
			r.Accepted, r.Success, strings.Join(r.Features, ","), r.DuplicateOf, r.ErrorMessage(),
		)
		if err != nil {
			return Run{}, fmt.Errorf("insert result %s: %w", r.OriginalName, err)
		}
	}

	return run, tx.Commit()
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, input_dir, started_at, finished_at, total, successful, failed, accepted, avg_confidence
		 FROM runs ORDER BY started_at DESC, created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(
			&r.ID, &r.Mode, &r.InputDir, &r.StartedAt, &r.FinishedAt,
			&r.Total, &r.Successful, &r.Failed, &r.Accepted, &r.AvgConfidence,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the image results of run id in input order.
func (s *Store) RunResults(ctx context.Context, id string) ([]ImageRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, original_name, new_name, category, confidence, accepted, success, features, duplicate_of, error
		 FROM image_results WHERE run_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ImageRecord
	for rows.Next() {
		var rec ImageRecord
		var features string
		err := rows.Scan(
			&rec.RunID, &rec.OriginalName, &rec.NewName, &rec.Category, &rec.Confidence,
			&rec.Accepted, &rec.Success, &features, &rec.DuplicateOf, &rec.Error,
		)
		if err != nil {
			return nil, err
		}
		if features != "" {
			rec.Features = strings.Split(features, ",")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

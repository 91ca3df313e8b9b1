package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/4tyone/pyrethrum/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	language    TEXT NOT NULL,
	status      TEXT NOT NULL,
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	diagnostics TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_file ON analysis_runs(file);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.AnalysisRun) (*model.AnalysisRun, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	var diags any
	if run.Diagnostics != nil {
		diags = string(run.Diagnostics)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, file, language, status, errors, warnings, diagnostics, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.File, run.Language, string(run.Status), run.Errors, run.Warnings, diags, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file, language, status, errors, warnings, diagnostics, created_at
		 FROM analysis_runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, file, language, status, errors, warnings, diagnostics, created_at FROM analysis_runs`
	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.File != "" {
		conds = append(conds, "file = ?")
		args = append(args, filter.File)
	}
	if filter.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filter.Language)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.AnalysisRun, error) {
	var run model.AnalysisRun
	var status string
	var diags sql.NullString
	if err := row.Scan(&run.ID, &run.File, &run.Language, &status, &run.Errors, &run.Warnings, &diags, &run.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(err, "sqlite: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	run.Status = model.RunStatus(status)
	if diags.Valid {
		run.Diagnostics = []byte(diags.String)
	}
	return &run, nil
}

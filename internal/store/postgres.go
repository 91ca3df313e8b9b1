package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/4tyone/pyrethrum/internal/model"
	"github.com/4tyone/pyrethrum/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses, kept as an interface
// so pgxmock can stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	// A database behind a container or supervisor may not accept
	// connections immediately.
	if err := resilience.Do(ctx, resilience.Defaults(), "postgres ping", pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	file        TEXT NOT NULL,
	language    TEXT NOT NULL,
	status      TEXT NOT NULL,
	errors      INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	diagnostics JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_status ON analysis_runs(status);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_file ON analysis_runs(file);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run model.AnalysisRun) (*model.AnalysisRun, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	var diags any
	if run.Diagnostics != nil {
		diags = []byte(run.Diagnostics)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analysis_runs (id, file, language, status, errors, warnings, diagnostics, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.File, run.Language, string(run.Status), run.Errors, run.Warnings, diags, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, file, language, status, errors, warnings, diagnostics, created_at
		 FROM analysis_runs WHERE id = $1`, runID)
	run, err := scanPgRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(err, "postgres: get run %s", runID)
		}
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error) {
	query := `SELECT id, file, language, status, errors, warnings, diagnostics, created_at FROM analysis_runs`
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.File != "" {
		conds = append(conds, "file = "+arg(filter.File))
	}
	if filter.Language != "" {
		conds = append(conds, "language = "+arg(filter.Language))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AnalysisRun
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func scanPgRun(row pgx.Row) (*model.AnalysisRun, error) {
	var run model.AnalysisRun
	var status string
	var diags []byte
	if err := row.Scan(&run.ID, &run.File, &run.Language, &status, &run.Errors, &run.Warnings, &diags, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	if diags != nil {
		run.Diagnostics = diags
	}
	return &run, nil
}

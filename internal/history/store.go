// Package history provides durable storage for harness run results, so
// conformance regressions can be tracked across engine versions.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/openwdl/conformance/internal/compare"
)

//go:embed schema.sql
var schemaSQL string

// Run is one recorded harness run.
type Run struct {
	ID         string          `json:"id"`
	Engine     string          `json:"engine"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    compare.Summary `json:"summary"`
	Total      int             `json:"total"`
}

// CaseResult is one recorded per-case verdict.
type CaseResult struct {
	Path    string          `json:"path"`
	Verdict compare.Verdict `json:"verdict"`
	Reason  string          `json:"reason,omitempty"`
}

// Store provides durable storage for run history.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// required pragmas and the schema. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores one run and its per-case results in a single
// transaction, returning the generated run ID.
func (s *Store) RecordRun(ctx context.Context, engine string, started, finished time.Time, results []compare.Result) (string, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	sum := compare.Summarize(results)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, engine, started_at, finished_at, total, passed, warned, failed, invalid, ignored)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, engine,
		started.UTC().Format(time.RFC3339Nano),
		finished.UTC().Format(time.RFC3339Nano),
		sum.Total(), sum.Passed, sum.Warned, sum.Failed, sum.Invalid, sum.Ignored,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, r := range results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO case_results (run_id, seq, path, verdict, reason) VALUES (?, ?, ?, ?, ?)`,
			runID, i, r.Path, string(r.Verdict), r.Reason,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert case result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, engine, started_at, finished_at, passed, warned, failed, invalid, ignored
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Engine, &started, &finished,
			&r.Summary.Passed, &r.Summary.Warned, &r.Summary.Failed,
			&r.Summary.Invalid, &r.Summary.Ignored); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		r.Total = r.Summary.Total()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CaseResults returns the per-case results for one run in evaluation
// order.
func (s *Store) CaseResults(ctx context.Context, runID string) ([]CaseResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, verdict, reason FROM case_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query case results: %w", err)
	}
	defer rows.Close()

	var results []CaseResult
	for rows.Next() {
		var cr CaseResult
		var verdict string
		if err := rows.Scan(&cr.Path, &verdict, &cr.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan case result: %w", err)
		}
		cr.Verdict = compare.Verdict(verdict)
		results = append(results, cr)
	}
	return results, rows.Err()
}

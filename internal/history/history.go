// Package history records aggregation runs in a local SQLite database so an
// operator can see how coverage and pass rates have moved over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Trigger values describe what initiated an aggregation run.
const (
	TriggerManual   = "manual"   // compliance generate
	TriggerInterval = "interval" // periodic refresh tick
	TriggerStartup  = "startup"  // initial refresh on serve
	TriggerWatch    = "watch"    // results-directory change
)

// Outcome values describe how a refresh cycle concluded.
const (
	OutcomeGenerated        = "generated"         // fresh matrix built from results
	OutcomePrebuilt         = "prebuilt"          // pre-built matrix artifact downloaded
	OutcomeReusedExisting   = "reused_existing"   // previously generated matrix reused
	OutcomeRequirementsOnly = "requirements_only" // requirements served with no test cases
	OutcomeUnavailable      = "unavailable"       // nothing usable could be produced
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id                    TEXT PRIMARY KEY,
    started_at            TIMESTAMP NOT NULL,
    finished_at           TIMESTAMP NOT NULL,
    trigger_kind          TEXT NOT NULL,
    outcome               TEXT NOT NULL,
    total_requirements    INTEGER NOT NULL DEFAULT 0,
    tested_requirements   INTEGER NOT NULL DEFAULT 0,
    total_tests           INTEGER NOT NULL DEFAULT 0,
    passing_tests         INTEGER NOT NULL DEFAULT 0,
    failing_tests         INTEGER NOT NULL DEFAULT 0,
    components            INTEGER NOT NULL DEFAULT 0,
    coverage              REAL NOT NULL DEFAULT 0,
    error                 TEXT NOT NULL DEFAULT ''
);
`

// Run is one recorded aggregation pass.
type Run struct {
	ID                 string
	StartedAt          time.Time
	FinishedAt         time.Time
	Trigger            string
	Outcome            string
	TotalRequirements  int
	TestedRequirements int
	TotalTests         int
	PassingTests       int
	FailingTests       int
	Components         int
	Coverage           float64
	Error              string
}

// Store persists aggregation runs in a local SQLite database in WAL mode.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dbPath, enables WAL mode
// and busy timeout, and creates the schema if it does not exist.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("history: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// Limit to one connection. SQLite only supports a single writer; using
	// one connection avoids SQLITE_BUSY contention between pooled connections
	// that each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordRun inserts one completed run.
func (s *Store) RecordRun(ctx context.Context, r Run) error {
	const q = `
		INSERT INTO runs (
			id, started_at, finished_at, trigger_kind, outcome,
			total_requirements, tested_requirements,
			total_tests, passing_tests, failing_tests,
			components, coverage, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Trigger, r.Outcome,
		r.TotalRequirements, r.TestedRequirements,
		r.TotalTests, r.PassingTests, r.FailingTests,
		r.Components, r.Coverage, r.Error,
	)
	if err != nil {
		return fmt.Errorf("history: record run %s: %w", r.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	const q = `
		SELECT id, started_at, finished_at, trigger_kind, outcome,
		       total_requirements, tested_requirements,
		       total_tests, passing_tests, failing_tests,
		       components, coverage, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.FinishedAt, &r.Trigger, &r.Outcome,
			&r.TotalRequirements, &r.TestedRequirements,
			&r.TotalTests, &r.PassingTests, &r.FailingTests,
			&r.Components, &r.Coverage, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}

// Package journal persists a history of reconciliation runs to SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"callwatch_roster/internal/roster"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Journal wraps SQLite access for run history and per-run discoveries.
type Journal struct {
	db *sql.DB
}

func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            started_at TIMESTAMP,
            finished_at TIMESTAMP,
            rows_examined INTEGER,
            new_ids INTEGER,
            group_ids INTEGER,
            discovered INTEGER,
            group_added INTEGER,
            status TEXT,
            error TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS discoveries (
            run_id TEXT,
            radio_id INTEGER,
            callsign TEXT,
            first_name TEXT,
            state TEXT,
            created_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_discoveries_run ON discoveries(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Run is one reconciliation cycle's bookkeeping row.
type Run struct {
	ID           string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	RowsExamined int        `json:"rows_examined"`
	NewIDs       int        `json:"new_ids"`
	GroupIDs     int        `json:"group_ids"`
	Discovered   int        `json:"discovered"`
	GroupAdded   int        `json:"group_added"`
	Status       string     `json:"status"`
	Error        *string    `json:"error"`
}

// NewRun starts a run record with a fresh ID.
func NewRun() *Run {
	return &Run{ID: uuid.NewString(), StartedAt: now()}
}

// Finish stamps the run with its final status.
func (r *Run) Finish(status string, err error) {
	ts := now()
	r.FinishedAt = &ts
	r.Status = status
	if err != nil {
		msg := err.Error()
		r.Error = &msg
	}
}

func (j *Journal) RecordRun(ctx context.Context, r *Run) error {
	_, err := j.db.ExecContext(ctx, `INSERT INTO runs(run_id, started_at, finished_at, rows_examined, new_ids, group_ids, discovered, group_added, status, error)
        VALUES(?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(run_id) DO UPDATE SET finished_at=excluded.finished_at, rows_examined=excluded.rows_examined, new_ids=excluded.new_ids, group_ids=excluded.group_ids, discovered=excluded.discovered, group_added=excluded.group_added, status=excluded.status, error=excluded.error`,
		r.ID, r.StartedAt, r.FinishedAt, r.RowsExamined, r.NewIDs, r.GroupIDs, r.Discovered, r.GroupAdded, r.Status, r.Error)
	return err
}

func (j *Journal) RecordDiscoveries(ctx context.Context, runID string, recs []roster.Record) error {
	for _, rec := range recs {
		_, err := j.db.ExecContext(ctx, `INSERT INTO discoveries(run_id, radio_id, callsign, first_name, state, created_at) VALUES(?,?,?,?,?,?)`,
			runID, rec.RadioID, rec.Callsign, rec.FirstName, rec.State, now())
		if err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, rows_examined, new_ids, group_ids, discovered, group_added, status, error FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.RowsExamined, &r.NewIDs, &r.GroupIDs, &r.Discovered, &r.GroupAdded, &r.Status, &errMsg); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		if errMsg.Valid {
			r.Error = &errMsg.String
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastRun returns the most recent run, or nil when the journal is empty.
func (j *Journal) LastRun(ctx context.Context) (*Run, error) {
	runs, err := j.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (j *Journal) Discoveries(ctx context.Context, runID string) ([]roster.Record, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT radio_id, callsign, first_name, state FROM discoveries WHERE run_id=? ORDER BY rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []roster.Record
	for rows.Next() {
		var rec roster.Record
		if err := rows.Scan(&rec.RadioID, &rec.Callsign, &rec.FirstName, &rec.State); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Health returns err if the DB is not reachable.
func (j *Journal) Health(ctx context.Context) error {
	row := j.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("journal health: %w", err)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Package ledger keeps a SQLite history of remap runs. It is a record for
// humans; nothing reads it back to decide whether to run.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound indicates an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Run is one recorded remap run.
type Run struct {
	ID             string
	Input          string
	Output         string
	Mapping        string // mapping identity
	Entries        int
	Classes        int
	ClassesChanged int
	Resources      int
	Duration       time.Duration
	Status         Status
	Error          string
	StartedAt      time.Time
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	input           TEXT NOT NULL,
	output          TEXT NOT NULL,
	mapping         TEXT NOT NULL,
	entries         INTEGER NOT NULL DEFAULT 0,
	classes         INTEGER NOT NULL DEFAULT 0,
	classes_changed INTEGER NOT NULL DEFAULT 0,
	resources       INTEGER NOT NULL DEFAULT 0,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	error           TEXT,
	started_at      TEXT NOT NULL
)`

const createRunsOutputIndex = `CREATE INDEX IF NOT EXISTS idx_runs_output ON runs(output)`

// Fixed width so started_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var runColumns = []string{
	"run_id", "input", "output", "mapping", "entries", "classes", "classes_changed",
	"resources", "duration_ms", "status", "error", "started_at",
}

// Ledger is a run history backed by a SQLite file.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	for _, ddl := range []string{createRunsTable, createRunsOutputIndex} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create ledger schema: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a run, assigning an id and start time when missing.
func (l *Ledger) Record(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := sq.Insert("runs").
		Columns(runColumns...).
		Values(
			run.ID,
			run.Input,
			run.Output,
			run.Mapping,
			run.Entries,
			run.Classes,
			run.ClassesChanged,
			run.Resources,
			run.Duration.Milliseconds(),
			string(run.Status),
			nullableString(run.Error),
			run.StartedAt.UTC().Format(timeFormat),
		).
		RunWith(l.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns one run.
func (l *Ledger) Get(id string) (*Run, error) {
	runs, err := l.query(sq.Select(runColumns...).From("runs").Where(sq.Eq{"run_id": id}))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (l *Ledger) Recent(limit int) ([]*Run, error) {
	query := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC", "run_id")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return l.query(query)
}

// ForOutput returns the runs that produced output, newest first.
func (l *Ledger) ForOutput(output string) ([]*Run, error) {
	return l.query(sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"output": output}).
		OrderBy("started_at DESC", "run_id"))
}

func (l *Ledger) query(query sq.SelectBuilder) ([]*Run, error) {
	rows, err := query.RunWith(l.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run        Run
			status     string
			errText    sql.NullString
			durationMS int64
			startedAt  string
		)
		if err := rows.Scan(
			&run.ID, &run.Input, &run.Output, &run.Mapping, &run.Entries, &run.Classes,
			&run.ClassesChanged, &run.Resources, &durationMS, &status, &errText, &startedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = Status(status)
		run.Error = errText.String
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if run.StartedAt, err = time.Parse(timeFormat, startedAt); err != nil {
			return nil, fmt.Errorf("invalid start time for run %s: %w", run.ID, err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Package history persists one row per invocation in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jkkim74/stockrun/internal/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	task        TEXT NOT NULL,
	status      TEXT NOT NULL,
	exit_code   INTEGER NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	log_path    TEXT NOT NULL DEFAULT '',
	last_msg    TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	ended_at    TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_task_started ON runs(task, started_at DESC);
`

// Run is one recorded invocation.
type Run struct {
	RunID     string
	Task      string
	Status    runner.Status
	ExitCode  int
	Reason    string
	LogPath   string
	LastMsg   string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// Store provides SQLite-backed run persistence.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the history database at dbPath.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts the result of one invocation.
func (s *Store) Record(res *runner.Result) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, task, status, exit_code, reason, log_path, last_msg, started_at, ended_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.RunID,
		res.Task,
		string(res.Status),
		res.ExitCode(),
		res.Reason,
		res.LogPath,
		res.LastMsg,
		res.StartedAt,
		res.EndedAt,
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT run_id, task, status, exit_code, reason, log_path, last_msg, started_at, ended_at, duration_ms
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Last returns the most recent run for a task, or nil if none exists.
func (s *Store) Last(task string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, task, status, exit_code, reason, log_path, last_msg, started_at, ended_at, duration_ms
		FROM runs WHERE task = ? ORDER BY started_at DESC LIMIT 1
	`, task)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var status string
	var durationMS int64

	err := sc.Scan(&r.RunID, &r.Task, &status, &r.ExitCode, &r.Reason, &r.LogPath, &r.LastMsg, &r.StartedAt, &r.EndedAt, &durationMS)
	if err != nil {
		return Run{}, err
	}

	r.Status = runner.Status(status)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

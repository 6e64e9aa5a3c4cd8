// Package journal keeps an in-process log of task execution attempts in SQLite.
//
// The default DSN is an in-memory database, so the journal lives and dies with
// the process.
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cronmachine/internal/domain"
)

const DefaultDSN = "file:cronmachine?mode=memory&cache=shared"

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  scheduled_at INTEGER NOT NULL,
  selected_at INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  duration_ns INTEGER NOT NULL DEFAULT 0,
  success INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_task ON attempts(task_id, started_at DESC);
`
	_, err := db.Exec(schema)
	return err
}

type Attempt struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"task_id"`
	Scheduled time.Time     `json:"scheduled_at"`
	Selected  time.Time     `json:"selected_at"`
	Started   time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

type TaskStats struct {
	TaskID    string     `json:"task_id"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type Journal struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens dsn with the pure-Go sqlite driver and ensures the schema.
func Open(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite single writer; also keeps a :memory: db alive
	db.SetMaxIdleConns(1)
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func New(db *sql.DB) *Journal { return &Journal{db: db, loc: time.UTC} }

// In makes read methods report times in loc.
func (j *Journal) In(loc *time.Location) *Journal {
	if loc != nil {
		j.loc = loc
	}
	return j
}

func (j *Journal) Close() error { return j.db.Close() }

// Record implements scheduler.Recorder.
func (j *Journal) Record(ctx context.Context, r domain.Result) error {
	id := r.AttemptID
	if id == "" {
		id = "att_" + uuid.NewString()
	}
	var errStr string
	if !r.OK() {
		errStr = r.Err.Error()
	}
	selected := r.Selected
	if selected.IsZero() {
		selected = r.Started
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO attempts (id,task_id,scheduled_at,selected_at,started_at,duration_ns,success,error)
VALUES (?,?,?,?,?,?,?,?)`,
		id, r.TaskID, r.Scheduled.UnixNano(), selected.UnixNano(), r.Started.UnixNano(), int64(r.Duration), r.OK(), errStr)
	return err
}

// Recent lists the newest attempts first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id,task_id,scheduled_at,selected_at,started_at,duration_ns,success,error
FROM attempts ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                            Attempt
			scheduled, selected, started int64
			dur                          int64
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &scheduled, &selected, &started, &dur, &a.Success, &a.Error); err != nil {
			return nil, err
		}
		a.Scheduled = time.Unix(0, scheduled).In(j.loc)
		a.Selected = time.Unix(0, selected).In(j.loc)
		a.Started = time.Unix(0, started).In(j.loc)
		a.Duration = time.Duration(dur)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats aggregates attempts per task id.
func (j *Journal) Stats(ctx context.Context) ([]TaskStats, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT a.task_id, COUNT(*), SUM(CASE WHEN a.success = 0 THEN 1 ELSE 0 END), MAX(a.started_at),
  COALESCE((SELECT b.error FROM attempts b WHERE b.task_id = a.task_id AND b.success = 0
            ORDER BY b.started_at DESC, b.rowid DESC LIMIT 1), '')
FROM attempts a GROUP BY a.task_id ORDER BY a.task_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskStats
	for rows.Next() {
		var (
			s    TaskStats
			last int64
		)
		if err := rows.Scan(&s.TaskID, &s.Runs, &s.Failures, &last, &s.LastError); err != nil {
			return nil, err
		}
		t := time.Unix(0, last).In(j.loc)
		s.LastRun = &t
		out = append(out, s)
	}
	return out, rows.Err()
}

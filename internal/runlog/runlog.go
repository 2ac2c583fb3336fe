// Package runlog persists one row per linkage run in a local SQLite
// database so past runs and their recovered gaps stay auditable.
package runlog

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/survey-geo/linkdata/internal/linker"
)

// Store wraps the SQLite run-history database.
type Store struct {
	db *sql.DB
}

// Entry is one recorded run.
type Entry struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       int
	Lags       []int
	FailedLags []int
	GapTotal   int
	Output     string
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL,
	rows         INTEGER NOT NULL,
	lags         TEXT NOT NULL,
	failed_lags  TEXT,
	gap_total    INTEGER NOT NULL DEFAULT 0,
	output       TEXT
);
`

// Open opens (and migrates) the run-history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "runlog: migrate")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts one run report.
func (s *Store) Record(report *linker.Report, output string) error {
	lags, err := json.Marshal(report.Lags)
	if err != nil {
		return eris.Wrap(err, "runlog: marshal lags")
	}
	failed, err := json.Marshal(report.FailedLags)
	if err != nil {
		return eris.Wrap(err, "runlog: marshal failed lags")
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, started_at, finished_at, rows, lags, failed_lags, gap_total, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.StartedAt.Format(time.RFC3339),
		report.FinishedAt.Format(time.RFC3339),
		report.Rows,
		string(lags),
		string(failed),
		report.Gaps.Total(),
		output,
	)
	return eris.Wrap(err, "runlog: insert run")
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, rows, lags, failed_lags, gap_total, COALESCE(output, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished, lags, failed string
		if err := rows.Scan(&e.RunID, &started, &finished, &e.Rows, &lags, &failed, &e.GapTotal, &e.Output); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		e.StartedAt, _ = time.Parse(time.RFC3339, started)
		e.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if lags != "" {
			_ = json.Unmarshal([]byte(lags), &e.Lags)
		}
		if failed != "" {
			_ = json.Unmarshal([]byte(failed), &e.FailedLags)
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "runlog: iterate runs")
}

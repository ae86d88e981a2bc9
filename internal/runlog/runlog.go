// Package runlog records per-run enrichment statistics in a local sqlite
// database. It is diagnostics only: the catalog itself lives in the flat
// snapshot file.
package runlog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Log stores run history using modernc.org/sqlite.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the run log at the given path and configures WAL mode.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "runlog: exec %s", pragma)
		}
	}
	return &Log{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL,
	records        INTEGER NOT NULL,
	planned        INTEGER NOT NULL,
	resolved       INTEGER NOT NULL,
	prices_found   INTEGER NOT NULL,
	prices_missing INTEGER NOT NULL,
	unresolved     INTEGER NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Migrate creates the runs table if needed.
func (l *Log) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "runlog: migrate")
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// RunRecord is one completed run's outcome.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Records       int
	Planned       int
	Resolved      int
	PricesFound   int
	PricesMissing int
	Unresolved    int
	Status        string
	Error         string
}

// Record inserts a run row. The caller treats failures as non-fatal.
func (l *Log) Record(ctx context.Context, r RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, records, planned, resolved, prices_found, prices_missing, unresolved, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Records, r.Planned,
		r.Resolved, r.PricesFound, r.PricesMissing, r.Unresolved, r.Status, r.Error,
	)
	return eris.Wrap(err, "runlog: insert run")
}

// Recent returns the most recent n runs, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, records, planned, resolved, prices_found, prices_missing, unresolved, status, COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Records, &r.Planned,
			&r.Resolved, &r.PricesFound, &r.PricesMissing, &r.Unresolved, &r.Status, &r.Error); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "runlog: iterate runs")
}

// Package history keeps the timing tables of past runs in SQLite so that
// successive benchmarks can be compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/weiihann/sortbench/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	elements   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS timings (
	run_id    TEXT    NOT NULL REFERENCES runs(id),
	family    TEXT    NOT NULL,
	position  INTEGER NOT NULL,
	label     TEXT    NOT NULL,
	seconds   REAL,
	all_match INTEGER NOT NULL,
	PRIMARY KEY (run_id, family, label)
);

CREATE INDEX IF NOT EXISTS idx_timings_family ON timings(family, run_id);
`

// Store is a SQLite backed run history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run identifies one benchmark run.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Elements  int
}

// NewRun returns a Run with a fresh identifier.
func NewRun(elements int, startedAt time.Time) Run {
	return Run{ID: uuid.New(), StartedAt: startedAt, Elements: elements}
}

// RecordRun stores the run header. It must precede RecordFamily.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, elements) VALUES (?, ?, ?)",
		run.ID.String(), run.StartedAt.UnixNano(), run.Elements,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	return nil
}

// RecordFamily stores one family's timing table. Absent times are stored
// as NULL.
func (s *Store) RecordFamily(
	ctx context.Context,
	runID uuid.UUID,
	family string,
	rows []report.TimingRow,
	outcome report.Outcome,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timings (run_id, family, position, label, seconds, all_match)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		var secs sql.NullFloat64
		if row.Seconds != nil {
			secs = sql.NullFloat64{Float64: *row.Seconds, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			runID.String(), family, i, row.Label, secs, outcome.AllMatch,
		); err != nil {
			return fmt.Errorf("record %s/%s: %w", family, row.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// Entry is one stored timing.
type Entry struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Elements  int
	Family    string
	Label     string
	Seconds   *float64
	AllMatch  bool
}

// Recent returns the timings of the latest limit runs of family, newest
// run first and targets in insertion order.
func (s *Store) Recent(ctx context.Context, family string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH recent AS (
			SELECT r.id FROM runs r
			WHERE EXISTS (
				SELECT 1 FROM timings t WHERE t.run_id = r.id AND t.family = ?
			)
			ORDER BY r.started_at DESC
			LIMIT ?
		)
		SELECT r.id, r.started_at, r.elements, t.label, t.seconds, t.all_match
		FROM timings t
		JOIN runs r ON r.id = t.run_id
		WHERE t.family = ? AND t.run_id IN (SELECT id FROM recent)
		ORDER BY r.started_at DESC, t.position ASC`,
		family, limit, family,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			id        string
			startedAt int64
			e         = Entry{Family: family}
			secs      sql.NullFloat64
		)

		if err := rows.Scan(&id, &startedAt, &e.Elements, &e.Label, &secs, &e.AllMatch); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		e.RunID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}

		e.StartedAt = time.Unix(0, startedAt)

		if secs.Valid {
			v := secs.Float64
			e.Seconds = &v
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

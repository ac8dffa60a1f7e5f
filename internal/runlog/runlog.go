// Package runlog keeps the history of pipeline runs in a SQLite database.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Kind is the pipeline step a run belongs to.
type Kind string

const (
	KindCorpus Kind = "corpus"
	KindSeed   Kind = "seed"
	KindStats  Kind = "stats"
	KindSample Kind = "sample"
)

// Run is one recorded pipeline run.
type Run struct {
	ID       string
	Kind     Kind
	Started  time.Time
	Finished time.Time
	Outcome  string
	Accepted int
	Skipped  int
	Failed   int
	Detail   string
}

// fixed width keeps the text column sortable
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Store is the run history database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create run history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	started TEXT NOT NULL,
	finished TEXT NOT NULL,
	outcome TEXT NOT NULL,
	accepted INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create run history schema: %w", err)
	}
	return nil
}

// Record saves r, replacing an earlier record with the same id.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (id, kind, started, finished, outcome, accepted, skipped, failed, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind),
		r.Started.UTC().Format(timeLayout), r.Finished.UTC().Format(timeLayout),
		r.Outcome, r.Accepted, r.Skipped, r.Failed, r.Detail)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return nil
}

// List returns the latest runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, started, finished, outcome, accepted, skipped, failed, detail
FROM runs ORDER BY started DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

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

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, started, finished, outcome, accepted, skipped, failed, detail
FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		kind              string
		started, finished string
	)
	if err := sc.Scan(&r.ID, &kind, &started, &finished, &r.Outcome, &r.Accepted, &r.Skipped, &r.Failed, &r.Detail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to read run: %w", err)
	}
	r.Kind = Kind(kind)

	var err error
	if r.Started, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("invalid start time %q: %w", started, err)
	}
	if r.Finished, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("invalid finish time %q: %w", finished, err)
	}
	return r, nil
}

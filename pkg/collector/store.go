package collector

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID does not exist in the store.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes one persisted collection run.
type RunInfo struct {
	ID        string
	Collector string
	StartedAt time.Time
	Samples   int
}

// Store persists collected runs in a SQLite database.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	collector  TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	samples    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id TEXT NOT NULL REFERENCES runs(id),
	idx    INTEGER NOT NULL,
	time   INTEGER NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

// OpenStore opens (and if needed initializes) a store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists a run and returns its generated ID.
func (s *Store) SaveRun(collector string, samples []Sample) (string, error) {
	id := uuid.NewString()
	started := time.Now()
	if len(samples) > 0 {
		started = samples[0].Time
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, collector, started_at, samples) VALUES (?, ?, ?, ?)",
		id, collector, started.UnixNano(), len(samples),
	)
	if err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO samples (run_id, idx, time, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("store: prepare samples: %w", err)
	}
	defer stmt.Close()

	for i, sm := range samples {
		if _, err := stmt.Exec(id, i, sm.Time.UnixNano(), sm.Value); err != nil {
			return "", fmt.Errorf("store: insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// Run loads one run and its samples.
func (s *Store) Run(id string) (RunInfo, []Sample, error) {
	var info RunInfo
	var startedNano int64
	err := s.db.QueryRow(
		"SELECT id, collector, started_at, samples FROM runs WHERE id = ?", id,
	).Scan(&info.ID, &info.Collector, &startedNano, &info.Samples)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("store: load run: %w", err)
	}
	info.StartedAt = time.Unix(0, startedNano)

	rows, err := s.db.Query(
		"SELECT time, value FROM samples WHERE run_id = ? ORDER BY idx", id,
	)
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("store: load samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var nano int64
		var value float64
		if err := rows.Scan(&nano, &value); err != nil {
			return RunInfo{}, nil, fmt.Errorf("store: scan sample: %w", err)
		}
		samples = append(samples, Sample{Time: time.Unix(0, nano), Value: value})
	}
	if err := rows.Err(); err != nil {
		return RunInfo{}, nil, fmt.Errorf("store: iterate samples: %w", err)
	}
	return info, samples, nil
}

// ListRuns returns run metadata ordered by start time, newest first.
func (s *Store) ListRuns() ([]RunInfo, error) {
	rows, err := s.db.Query(
		"SELECT id, collector, started_at, samples FROM runs ORDER BY started_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var startedNano int64
		if err := rows.Scan(&info.ID, &info.Collector, &startedNano, &info.Samples); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		info.StartedAt = time.Unix(0, startedNano)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate runs: %w", err)
	}
	return runs, nil
}

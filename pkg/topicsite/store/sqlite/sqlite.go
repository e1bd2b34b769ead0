package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
	"github.com/cognicore/topicsite/pkg/topicsite/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	// foreign_keys is per connection; the DSN pragma applies it to every
	// pooled connection
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	records INTEGER NOT NULL,
	vocab_size INTEGER NOT NULL,
	topics INTEGER NOT NULL,
	seed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS topics (
	run_id TEXT NOT NULL,
	topic_id INTEGER NOT NULL,
	title TEXT,
	keywords TEXT,
	coherence REAL,
	size INTEGER NOT NULL,
	PRIMARY KEY(run_id, topic_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id TEXT NOT NULL,
	record_index INTEGER NOT NULL,
	topic_id INTEGER NOT NULL,
	probability REAL NOT NULL,
	PRIMARY KEY(run_id, record_index),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_assignments_topic ON assignments(run_id, topic_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun inserts a run and its children in one transaction
func (s *sqliteStore) SaveRun(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty id: %w", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Replacing a run drops its old children through the cascade
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id=?`, run.ID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, records, vocab_size, topics, seed)
VALUES (?, ?, ?, ?, ?, ?);
`, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Records, run.VocabSize, run.TopicCount, run.Seed)
	if err != nil {
		return err
	}

	if err := insertTopics(ctx, tx, run.ID, run.Topics); err != nil {
		return err
	}
	if err := insertAssignments(ctx, tx, run.ID, run.Assignments); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTopics(ctx context.Context, tx *sql.Tx, runID string, topics []store.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO topics (run_id, topic_id, title, keywords, coherence, size)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range topics {
		keywordsJSON, err := json.Marshal(t.Keywords)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, t.ID, t.Title, string(keywordsJSON), t.Coherence, t.Size); err != nil {
			return err
		}
	}
	return nil
}

func insertAssignments(ctx context.Context, tx *sql.Tx, runID string, assignments []store.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO assignments (run_id, record_index, topic_id, probability)
VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, runID, a.Record, a.Topic, a.Probability); err != nil {
			return err
		}
	}
	return nil
}

// GetRun loads a run with its topics and assignments
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	run, err := s.loadRun(ctx, `SELECT id, started_at, records, vocab_size, topics, seed FROM runs WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, err
	}
	return run, nil
}

// LatestRun loads the run with the greatest id
func (s *sqliteStore) LatestRun(ctx context.Context) (store.Run, bool, error) {
	run, err := s.loadRun(ctx, `SELECT id, started_at, records, vocab_size, topics, seed FROM runs ORDER BY id DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return run, true, nil
}

// ListRuns returns run summaries, newest first
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, records, vocab_size, topics, seed
FROM runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TopicRecords returns one topic's assignments in record order
func (s *sqliteStore) TopicRecords(ctx context.Context, runID string, topic int) ([]store.Assignment, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, internalerr.ErrNotFound)
	}
	return s.loadAssignments(ctx, `
SELECT record_index, topic_id, probability
FROM assignments
WHERE run_id = ? AND topic_id = ?
ORDER BY record_index;
`, runID, topic)
}

// PruneRuns keeps the newest keep runs
func (s *sqliteStore) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune runs: keep %d: %w", keep, internalerr.ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, `
DELETE FROM runs
WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?);
`, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (store.Run, error) {
	var (
		run       store.Run
		startedAt string
	)
	if err := row.Scan(&run.ID, &startedAt, &run.Records, &run.VocabSize, &run.TopicCount, &run.Seed); err != nil {
		return store.Run{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: parse started_at: %w", run.ID, err)
	}
	run.StartedAt = t
	return run, nil
}

func (s *sqliteStore) loadRun(ctx context.Context, query string, args ...interface{}) (store.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return store.Run{}, err
	}

	run.Topics, err = s.loadTopics(ctx, run.ID)
	if err != nil {
		return store.Run{}, err
	}
	run.Assignments, err = s.loadAssignments(ctx, `
SELECT record_index, topic_id, probability
FROM assignments
WHERE run_id = ?
ORDER BY record_index;
`, run.ID)
	if err != nil {
		return store.Run{}, err
	}
	return run, nil
}

func (s *sqliteStore) loadTopics(ctx context.Context, runID string) ([]store.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT topic_id, title, keywords, coherence, size
FROM topics
WHERE run_id = ?
ORDER BY topic_id;
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []store.Topic
	for rows.Next() {
		var (
			t            store.Topic
			keywordsJSON string
		)
		if err := rows.Scan(&t.ID, &t.Title, &keywordsJSON, &t.Coherence, &t.Size); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &t.Keywords); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *sqliteStore) loadAssignments(ctx context.Context, query string, args ...interface{}) ([]store.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Assignment
	for rows.Next() {
		var a store.Assignment
		if err := rows.Scan(&a.Record, &a.Topic, &a.Probability); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

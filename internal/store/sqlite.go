package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists admission state across restarts in a local SQLite
// database. WAL mode with a busy timeout keeps it safe for the concurrent
// handlers of a single process. Timestamps are stored as unix nanoseconds
// so MAX() comparisons stay correct.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and initializes the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	// Serializing writers through one connection avoids SQLITE_BUSY churn
	// from concurrent Admit transactions.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_state (
		agent         TEXT PRIMARY KEY,
		active_until  INTEGER NOT NULL DEFAULT 0,
		last_activity INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS thread_turns (
		agent  TEXT NOT NULL,
		thread TEXT NOT NULL,
		count  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (agent, thread)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Admit(agent, threadID string, now time.Time, cooldown time.Duration, maxTurns int) (Verdict, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin admit: %w", err)
	}
	defer tx.Rollback()

	var until int64
	err = tx.QueryRow(`SELECT active_until FROM agent_state WHERE agent = ?`, agent).Scan(&until)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("read cooldown: %w", err)
	}
	if until > 0 && now.UnixNano() < until {
		return VerdictCooldown, nil
	}

	if maxTurns > 0 {
		var count int
		err = tx.QueryRow(`SELECT count FROM thread_turns WHERE agent = ? AND thread = ?`, agent, threadID).Scan(&count)
		if err != nil && err != sql.ErrNoRows {
			return "", fmt.Errorf("read turns: %w", err)
		}
		if count >= maxTurns {
			return VerdictTurnLimit, nil
		}
	}

	_, err = tx.Exec(
		`INSERT INTO agent_state (agent, active_until) VALUES (?, ?)
		 ON CONFLICT(agent) DO UPDATE SET active_until = excluded.active_until`,
		agent, now.Add(cooldown).UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("commit cooldown: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit admit: %w", err)
	}
	return VerdictAdmit, nil
}

func (s *SQLiteStore) RecordTurn(agent, threadID string, maxTurns int) error {
	_, err := s.db.Exec(
		`INSERT INTO thread_turns (agent, thread, count) VALUES (?, ?, 1)
		 ON CONFLICT(agent, thread) DO UPDATE SET count = count + 1
		 WHERE ? <= 0 OR count < ?`,
		agent, threadID, maxTurns, maxTurns,
	)
	return err
}

func (s *SQLiteStore) TurnCount(agent, threadID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM thread_turns WHERE agent = ? AND thread = ?`, agent, threadID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (s *SQLiteStore) TouchActivity(agent string, now time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO agent_state (agent, last_activity) VALUES (?, ?)
		 ON CONFLICT(agent) DO UPDATE SET last_activity = MAX(last_activity, excluded.last_activity)`,
		agent, now.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) LastActivity(agent string) (time.Time, error) {
	var ns int64
	err := s.db.QueryRow(`SELECT last_activity FROM agent_state WHERE agent = ?`, agent).Scan(&ns)
	if err == sql.ErrNoRows || (err == nil && ns == 0) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, ns), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

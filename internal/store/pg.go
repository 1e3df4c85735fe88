package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PGStore persists admission state in Postgres. Intended for deployments
// that consolidate several agents onto shared infrastructure; the
// transactional Admit keeps the per-agent cooldown linearizable even across
// processes sharing one database.
type PGStore struct {
	db *sql.DB
}

// NewPGStore connects to Postgres and initializes the schema.
func NewPGStore(dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_state (
		agent         TEXT PRIMARY KEY,
		active_until  TIMESTAMPTZ,
		last_activity TIMESTAMPTZ
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

func (s *PGStore) Admit(agent, threadID string, now time.Time, cooldown time.Duration, maxTurns int) (Verdict, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin admit: %w", err)
	}
	defer tx.Rollback()

	// Row lock serializes concurrent Admit calls for the same agent.
	var until sql.NullTime
	err = tx.QueryRow(`SELECT active_until FROM agent_state WHERE agent = $1 FOR UPDATE`, agent).Scan(&until)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("read cooldown: %w", err)
	}
	if until.Valid && now.Before(until.Time) {
		return VerdictCooldown, nil
	}

	if maxTurns > 0 {
		var count int
		err = tx.QueryRow(`SELECT count FROM thread_turns WHERE agent = $1 AND thread = $2`, agent, threadID).Scan(&count)
		if err != nil && err != sql.ErrNoRows {
			return "", fmt.Errorf("read turns: %w", err)
		}
		if count >= maxTurns {
			return VerdictTurnLimit, nil
		}
	}

	_, err = tx.Exec(
		`INSERT INTO agent_state (agent, active_until) VALUES ($1, $2)
		 ON CONFLICT (agent) DO UPDATE SET active_until = EXCLUDED.active_until`,
		agent, now.Add(cooldown),
	)
	if err != nil {
		return "", fmt.Errorf("commit cooldown: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit admit: %w", err)
	}
	return VerdictAdmit, nil
}

func (s *PGStore) RecordTurn(agent, threadID string, maxTurns int) error {
	_, err := s.db.Exec(
		`INSERT INTO thread_turns (agent, thread, count) VALUES ($1, $2, 1)
		 ON CONFLICT (agent, thread) DO UPDATE SET count = thread_turns.count + 1
		 WHERE $3 <= 0 OR thread_turns.count < $3`,
		agent, threadID, maxTurns,
	)
	return err
}

func (s *PGStore) TurnCount(agent, threadID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM thread_turns WHERE agent = $1 AND thread = $2`, agent, threadID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (s *PGStore) TouchActivity(agent string, now time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO agent_state (agent, last_activity) VALUES ($1, $2)
		 ON CONFLICT (agent) DO UPDATE SET last_activity = GREATEST(agent_state.last_activity, EXCLUDED.last_activity)`,
		agent, now,
	)
	return err
}

func (s *PGStore) LastActivity(agent string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRow(`SELECT last_activity FROM agent_state WHERE agent = $1`, agent).Scan(&last)
	if err == sql.ErrNoRows || (err == nil && !last.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return last.Time, nil
}

func (s *PGStore) Close() error { return s.db.Close() }

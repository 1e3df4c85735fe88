// Package store holds the mutable, time-indexed admission state shared by
// every in-flight event handler in one agent process: the agent-global
// cooldown, per-thread turn counts, and the process-wide last-activity mark.
//
// The state is deliberately an injectable object rather than package-level
// globals so it can be unit-tested with a fake clock and swapped for a
// shared backend if agents are later consolidated into one deployment.
// Three drivers exist: memory (fresh start on restart), sqlite, postgres.
package store

import (
	"fmt"
	"time"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

// Verdict is the outcome of an admission check.
type Verdict string

const (
	VerdictAdmit     Verdict = "admit"
	VerdictCooldown  Verdict = "cooldown_active"
	VerdictTurnLimit Verdict = "turn_limit_reached"
)

// StateStore is the admission-state backend. All methods must be safe for
// concurrent use; Admit must be linearizable per agent key so two concurrent
// handlers cannot both pass the cooldown gate.
type StateStore interface {
	// Admit atomically checks the cooldown and the per-thread turn ceiling.
	// On admission it immediately commits the new cooldown
	// (activeUntil = now + cooldown); that commitment is never rolled back,
	// even if the dispatch later aborts on staleness or a backend failure.
	Admit(agent, threadID string, now time.Time, cooldown time.Duration, maxTurns int) (Verdict, error)

	// RecordTurn increments the turn count for (agent, thread) after a
	// reply was actually posted. The increment is capped at maxTurns
	// (non-positive means uncapped): two handlers that raced past Admit at
	// count = max-1 cannot push the committed count over the ceiling.
	RecordTurn(agent, threadID string, maxTurns int) error

	// TurnCount returns the committed turn count for (agent, thread).
	TurnCount(agent, threadID string) (int, error)

	// TouchActivity records inbound activity for the agent's workspace.
	TouchActivity(agent string, now time.Time) error

	// LastActivity returns the most recent activity mark. The zero time
	// means no activity has been observed yet.
	LastActivity(agent string) (time.Time, error)

	Close() error
}

// Open creates the StateStore selected by cfg.Driver.
func Open(cfg config.StoreConfig) (StateStore, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(config.ExpandHome(cfg.Path))
	case "postgres":
		return NewPGStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

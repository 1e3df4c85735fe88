package engine

import (
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

// Stagger computes the short delay an agent waits before composing a reply.
// The base component is deterministic per agent name so that a fleet of
// agents triggered by the same broadcast settles into a stable posting
// order; jitter adds a small random component on top. Best-effort collision
// avoidance, not mutual exclusion.
type Stagger struct {
	base   time.Duration
	jitter time.Duration
}

// NewStagger derives the per-agent delay policy from config.
func NewStagger(cfg config.StaggerCfg, agentName string) Stagger {
	minMs := cfg.MinMs
	if minMs <= 0 {
		minMs = 2000
	}
	maxMs := cfg.MaxMs
	if maxMs < minMs {
		maxMs = minMs
	}
	jitterMs := cfg.JitterMs
	if jitterMs < 0 {
		jitterMs = 0
	}

	h := fnv.New32a()
	h.Write([]byte(agentName))
	span := maxMs - minMs + 1
	baseMs := minMs + int(h.Sum32())%span

	return Stagger{
		base:   time.Duration(baseMs) * time.Millisecond,
		jitter: time.Duration(jitterMs) * time.Millisecond,
	}
}

// Delay returns the wait for one dispatch: the fixed per-agent base plus
// fresh jitter.
func (s Stagger) Delay() time.Duration {
	d := s.base
	if s.jitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	return d
}

// Base returns the deterministic component, exposed for tests.
func (s Stagger) Base() time.Duration { return s.base }

package store

import (
	"sync"
	"time"
)

// MemoryStore is the default in-process StateStore. State resets on restart,
// matching the original fresh-start semantics.
type MemoryStore struct {
	mu           sync.Mutex
	activeUntil  map[string]time.Time // agent → cooldown expiry
	turns        map[string]int       // agent + "\x00" + thread → count
	lastActivity map[string]time.Time // agent → last inbound activity
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activeUntil:  make(map[string]time.Time),
		turns:        make(map[string]int),
		lastActivity: make(map[string]time.Time),
	}
}

func turnKey(agent, threadID string) string { return agent + "\x00" + threadID }

func (s *MemoryStore) Admit(agent, threadID string, now time.Time, cooldown time.Duration, maxTurns int) (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.activeUntil[agent]; ok && now.Before(until) {
		return VerdictCooldown, nil
	}
	if maxTurns > 0 && s.turns[turnKey(agent, threadID)] >= maxTurns {
		return VerdictTurnLimit, nil
	}

	s.activeUntil[agent] = now.Add(cooldown)
	return VerdictAdmit, nil
}

func (s *MemoryStore) RecordTurn(agent, threadID string, maxTurns int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := turnKey(agent, threadID)
	if maxTurns > 0 && s.turns[k] >= maxTurns {
		return nil
	}
	s.turns[k]++
	return nil
}

func (s *MemoryStore) TurnCount(agent, threadID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns[turnKey(agent, threadID)], nil
}

func (s *MemoryStore) TouchActivity(agent string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastActivity[agent]) {
		s.lastActivity[agent] = now
	}
	return nil
}

func (s *MemoryStore) LastActivity(agent string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity[agent], nil
}

func (s *MemoryStore) Close() error { return nil }

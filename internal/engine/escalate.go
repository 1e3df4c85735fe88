package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EscalationStatus is the lifecycle of one unresolved cross-domain decision.
type EscalationStatus string

const (
	EscalationOpen      EscalationStatus = "open"
	EscalationEscalated EscalationStatus = "escalated"
	EscalationResolved  EscalationStatus = "resolved"
)

// EscalationRecord tracks one cross-exec debate awaiting resolution.
type EscalationRecord struct {
	ID           string
	ChannelID    string
	ThreadID     string
	Topic        string // text of the message that opened the debate
	OpenedAt     time.Time
	Participants []string // agent names, sorted
	Status       EscalationStatus
}

// Reporter returns the single participant accountable for escalating:
// the lexicographically least name. Every participating process computes
// the same answer, so exactly one posts.
func (r *EscalationRecord) Reporter() string {
	if len(r.Participants) == 0 {
		return ""
	}
	return r.Participants[0]
}

// Escalations detects cross-domain decisions that sat unresolved past the
// configured window. Records are keyed by thread; state is in-memory and
// process-local, mirroring the rest of the temporal state.
type Escalations struct {
	mu      sync.Mutex
	window  time.Duration
	records map[string]*EscalationRecord
}

// NewEscalations creates the detector with the given unresolved window.
func NewEscalations(window time.Duration) *Escalations {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Escalations{
		window:  window,
		records: make(map[string]*EscalationRecord),
	}
}

// Observe opens a record for a cross-exec debate in a thread, or extends an
// existing one with new participants. participants are agent names; the
// caller includes its own name. No-op once the record is resolved.
func (e *Escalations) Observe(channelID, threadID, topic string, openedAt time.Time, participants []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.records[threadID]
	if !ok {
		rec = &EscalationRecord{
			ID:        uuid.New().String(),
			ChannelID: channelID,
			ThreadID:  threadID,
			Topic:     topic,
			OpenedAt:  openedAt,
			Status:    EscalationOpen,
		}
		e.records[threadID] = rec
	}
	if rec.Status == EscalationResolved {
		return
	}

	seen := make(map[string]bool, len(rec.Participants))
	for _, p := range rec.Participants {
		seen[p] = true
	}
	for _, p := range participants {
		if p != "" && !seen[p] {
			rec.Participants = append(rec.Participants, p)
			seen[p] = true
		}
	}
	sort.Strings(rec.Participants)
}

// Resolve marks the thread's debate resolved. Called when the founder posts
// into the thread; safe when no record exists.
func (e *Escalations) Resolve(threadID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rec, ok := e.records[threadID]; ok {
		rec.Status = EscalationResolved
	}
}

// Sweep transitions open records whose window has elapsed to escalated and
// returns copies of the newly escalated ones. Each record escalates at most
// once.
func (e *Escalations) Sweep(now time.Time) []EscalationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []EscalationRecord
	for _, rec := range e.records {
		if rec.Status != EscalationOpen {
			continue
		}
		if now.Sub(rec.OpenedAt) < e.window {
			continue
		}
		rec.Status = EscalationEscalated
		out = append(out, *rec)
	}
	return out
}

// Status returns the current status of a thread's record, if any.
func (e *Escalations) Status(threadID string) (EscalationStatus, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[threadID]
	if !ok {
		return "", false
	}
	return rec.Status, true
}

package engine

import (
	"testing"
	"time"
)

var escT0 = time.Date(2025, 8, 5, 10, 0, 0, 0, time.UTC)

func TestEscalations_TransitionAfterWindow(t *testing.T) {
	e := NewEscalations(30 * time.Minute)
	e.Observe("C1", "100.000", "hiring budget vs headcount plan", escT0, []string{"miles", "ava"})

	if got := e.Sweep(escT0.Add(29 * time.Minute)); len(got) != 0 {
		t.Fatalf("swept before window: %v", got)
	}

	got := e.Sweep(escT0.Add(30 * time.Minute))
	if len(got) != 1 {
		t.Fatalf("want 1 escalation, got %d", len(got))
	}
	rec := got[0]
	if rec.Status != EscalationEscalated {
		t.Errorf("status: got %v", rec.Status)
	}
	if rec.Reporter() != "ava" {
		t.Errorf("reporter: got %q, want lexicographically least participant", rec.Reporter())
	}

	// A record escalates exactly once.
	if again := e.Sweep(escT0.Add(time.Hour)); len(again) != 0 {
		t.Fatalf("second sweep re-escalated: %v", again)
	}
}

func TestEscalations_ResolveStopsEscalation(t *testing.T) {
	e := NewEscalations(30 * time.Minute)
	e.Observe("C1", "100.000", "topic", escT0, []string{"miles", "ava"})
	e.Resolve("100.000")

	if got := e.Sweep(escT0.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("resolved record escalated: %v", got)
	}
	if st, ok := e.Status("100.000"); !ok || st != EscalationResolved {
		t.Fatalf("status: got %v, %v", st, ok)
	}
}

func TestEscalations_ObserveMergesParticipants(t *testing.T) {
	e := NewEscalations(30 * time.Minute)
	e.Observe("C1", "100.000", "topic", escT0, []string{"miles"})
	e.Observe("C1", "100.000", "later message", escT0.Add(time.Minute), []string{"kai", "miles"})

	got := e.Sweep(escT0.Add(31 * time.Minute))
	if len(got) != 1 {
		t.Fatalf("want 1 escalation, got %d", len(got))
	}
	rec := got[0]
	if len(rec.Participants) != 2 || rec.Participants[0] != "kai" || rec.Participants[1] != "miles" {
		t.Errorf("participants: got %v", rec.Participants)
	}
	// The opening timestamp is the first observation, not the latest.
	if !rec.OpenedAt.Equal(escT0) {
		t.Errorf("openedAt: got %v, want %v", rec.OpenedAt, escT0)
	}
	if rec.Topic != "topic" {
		t.Errorf("topic: got %q", rec.Topic)
	}
}

func TestEscalations_ResolveUnknownThreadIsNoop(t *testing.T) {
	e := NewEscalations(30 * time.Minute)
	e.Resolve("nope")
	if _, ok := e.Status("nope"); ok {
		t.Fatal("resolve must not create records")
	}
}

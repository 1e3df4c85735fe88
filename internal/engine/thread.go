package engine

import "github.com/anabananasophia/Talia-bot/internal/bus"

// ThreadContext identifies the conversation a message belongs to. The
// thread ID is always the root message's timestamp.
type ThreadContext struct {
	ThreadID string
	IsRoot   bool
}

// ResolveThread derives the canonical thread context for an event. A reply
// carries its root's timestamp; a message without one starts a new thread
// rooted at itself.
func ResolveThread(ev bus.InboundEvent) ThreadContext {
	if ev.ThreadRootTS != "" {
		return ThreadContext{ThreadID: ev.ThreadRootTS, IsRoot: ev.ThreadRootTS == ev.Timestamp}
	}
	return ThreadContext{ThreadID: ev.Timestamp, IsRoot: true}
}

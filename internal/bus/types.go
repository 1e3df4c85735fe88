// Package bus defines the message types shared between the platform ingress
// (webhook or socket mode) and the response engine.
package bus

// EventType classifies an inbound platform event.
type EventType string

const (
	EventMessage EventType = "message"
	EventMention EventType = "app_mention"
)

// InboundEvent is one observed workspace message. It is constructed per
// ingress delivery and never persisted.
type InboundEvent struct {
	Type         EventType `json:"type"`
	Text         string    `json:"text"`
	AuthorID     string    `json:"author_id"`
	ChannelID    string    `json:"channel_id"`
	Timestamp    string    `json:"timestamp"`                // platform message timestamp, e.g. "1723041600.000100"
	ThreadRootTS string    `json:"thread_root_ts,omitempty"` // set when the event is a threaded reply
	Subtype      string    `json:"subtype,omitempty"`
	BotID        string    `json:"bot_id,omitempty"` // non-empty when posted by a bot integration
}

// IsFromBot reports whether the event originated from a bot integration.
func (e InboundEvent) IsFromBot() bool { return e.BotID != "" }

// EventSink receives inbound events. The engine implements this; ingress
// transports (webhook handler, socket-mode client) call it and must not
// block on it beyond the synchronous admission decision.
type EventSink interface {
	HandleEvent(ev InboundEvent) Decision
}

// Decision is the synchronous admission outcome for one inbound event.
// Rejections are deliberate no-ops, not errors; each is distinguishable in
// logs but never surfaces to the sender.
type Decision string

const (
	DecisionDispatch     Decision = "dispatched"
	DecisionIgnoredType  Decision = "ignored_event_type"
	DecisionSubtype      Decision = "ignored_subtype"
	DecisionBotOrigin    Decision = "ignored_bot"
	DecisionWrongMention Decision = "not_addressed_to_me"
	DecisionNotMyMention Decision = "mention_without_my_id"
	DecisionIrrelevant   Decision = "not_relevant"
	DecisionAfterHours   Decision = "after_hours"
)

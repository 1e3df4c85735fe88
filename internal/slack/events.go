// Package slack implements the Slack surface: event envelope parsing for
// both webhook and Socket Mode ingress, and the Web API calls the engine
// needs to post replies and inspect threads.
package slack

import (
	"encoding/json"
	"fmt"

	"github.com/anabananasophia/Talia-bot/internal/bus"
)

// eventEnvelope is the outer object Slack delivers to the Events API
// endpoint. Only the fields we route on are declared.
type eventEnvelope struct {
	Type      string          `json:"type"`
	Token     string          `json:"token"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

// innerEvent is the message-shaped payload inside an event_callback.
type innerEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	Text     string `json:"text"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

// Envelope is the parsed form of one Events API delivery.
type Envelope struct {
	// Challenge is non-empty for url_verification handshakes; the caller
	// must echo it back and stop.
	Challenge string

	// Event holds the normalized message event for event_callback
	// deliveries. Nil when the delivery carries no routable event.
	Event *bus.InboundEvent

	// Token is the legacy verification token Slack includes on webhook
	// deliveries.
	Token string
}

// ParseEnvelope decodes one Events API payload. Unknown envelope types and
// non-message inner events come back with a nil Event rather than an error;
// only malformed JSON fails.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event envelope: %w", err)
	}

	out := Envelope{Token: env.Token}

	switch env.Type {
	case "url_verification":
		out.Challenge = env.Challenge
		return out, nil
	case "event_callback":
		if len(env.Event) == 0 {
			return out, nil
		}
		var in innerEvent
		if err := json.Unmarshal(env.Event, &in); err != nil {
			return Envelope{}, fmt.Errorf("decode inner event: %w", err)
		}
		if in.Type != string(bus.EventMessage) && in.Type != string(bus.EventMention) {
			return out, nil
		}
		out.Event = &bus.InboundEvent{
			Type:         bus.EventType(in.Type),
			Text:         in.Text,
			AuthorID:     in.User,
			ChannelID:    in.Channel,
			Timestamp:    in.TS,
			ThreadRootTS: in.ThreadTS,
			Subtype:      in.Subtype,
			BotID:        in.BotID,
		}
		return out, nil
	default:
		return out, nil
	}
}

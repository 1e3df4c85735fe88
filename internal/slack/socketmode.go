package slack

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anabananasophia/Talia-bot/internal/bus"
)

// SocketMode runs the websocket ingress for workspaces that cannot expose a
// public HTTP endpoint. Each events_api envelope must be acked within a few
// seconds or Slack redelivers it, so the ack is sent before the event is
// handed to the sink.
type SocketMode struct {
	client *Client
	sink   bus.EventSink
	logger *slog.Logger
}

func NewSocketMode(client *Client, sink bus.EventSink, logger *slog.Logger) *SocketMode {
	return &SocketMode{client: client, sink: sink, logger: logger}
}

// socketEnvelope is one frame from the Socket Mode connection.
type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload"`
}

// Run connects and processes envelopes until ctx is canceled, reconnecting
// with backoff on any connection failure.
func (s *SocketMode) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := s.runConn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("socket mode connection lost, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *SocketMode) runConn(ctx context.Context) error {
	wsURL, err := s.client.ConnectionsOpen(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller shuts down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env socketEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("malformed socket envelope", "error", err)
			continue
		}

		switch env.Type {
		case "hello":
			s.logger.Info("socket mode connected")
		case "disconnect":
			// Slack asks us to reconnect; return and let Run redial.
			return nil
		case "events_api":
			if env.EnvelopeID != "" {
				ack, _ := json.Marshal(map[string]string{"envelope_id": env.EnvelopeID})
				if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
					return err
				}
			}
			parsed, err := ParseEnvelope(env.Payload)
			if err != nil {
				s.logger.Warn("malformed events_api payload", "error", err)
				continue
			}
			if parsed.Event != nil {
				s.sink.HandleEvent(*parsed.Event)
			}
		}
	}
}

package slack

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anabananasophia/Talia-bot/internal/bus"
)

type recordingSink struct {
	events   []bus.InboundEvent
	decision bus.Decision
}

func (s *recordingSink) HandleEvent(ev bus.InboundEvent) bus.Decision {
	s.events = append(s.events, ev)
	return s.decision
}

func newTestServer(sink bus.EventSink, token string, rpm int) *httptest.Server {
	mux := http.NewServeMux()
	h := NewWebhookHandler(sink, token, rpm, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Routes(mux)
	return httptest.NewServer(mux)
}

func postEvents(t *testing.T, srv *httptest.Server, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/slack/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestWebhook_ChallengeEcho(t *testing.T) {
	sink := &recordingSink{}
	srv := newTestServer(sink, "", 0)
	defer srv.Close()

	code, body := postEvents(t, srv, `{"type":"url_verification","challenge":"xyz"}`)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if !strings.Contains(body, `"challenge":"xyz"`) {
		t.Fatalf("body: got %q", body)
	}
	if len(sink.events) != 0 {
		t.Fatal("handshake must not reach the sink")
	}
}

func TestWebhook_DispatchesToSink(t *testing.T) {
	sink := &recordingSink{decision: bus.DecisionDispatch}
	srv := newTestServer(sink, "", 0)
	defer srv.Close()

	code, body := postEvents(t, srv, `{
		"type":"event_callback",
		"event":{"type":"message","text":"budget question","user":"U1","channel":"C1","ts":"1.000"}
	}`)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if body != string(bus.DecisionDispatch) {
		t.Fatalf("ack body: got %q", body)
	}
	if len(sink.events) != 1 || sink.events[0].Text != "budget question" {
		t.Fatalf("sink events: got %+v", sink.events)
	}
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	sink := &recordingSink{}
	srv := newTestServer(sink, "secret", 0)
	defer srv.Close()

	code, _ := postEvents(t, srv, `{
		"type":"event_callback","token":"wrong",
		"event":{"type":"message","text":"x","user":"U1","channel":"C1","ts":"1.000"}
	}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", code)
	}
	if len(sink.events) != 0 {
		t.Fatal("bad token must not reach the sink")
	}
}

func TestWebhook_RateLimitStillAcks(t *testing.T) {
	sink := &recordingSink{decision: bus.DecisionDispatch}
	srv := newTestServer(sink, "", 1)
	defer srv.Close()

	ev := `{"type":"event_callback","event":{"type":"message","text":"x","user":"U1","channel":"C1","ts":"1.000"}}`
	postEvents(t, srv, ev)
	code, body := postEvents(t, srv, ev)

	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 so Slack does not redeliver", code)
	}
	if body != "rate_limited" {
		t.Fatalf("body: got %q", body)
	}
	if len(sink.events) != 1 {
		t.Fatalf("sink events: got %d, want 1", len(sink.events))
	}
}

func TestWebhook_Health(t *testing.T) {
	srv := newTestServer(&recordingSink{}, "", 0)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
}

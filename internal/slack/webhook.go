package slack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/anabananasophia/Talia-bot/internal/bus"
)

const maxEventBody = 1 << 20 // Slack events are small; cap defensively

// WebhookHandler receives Events API deliveries over HTTP. Slack retries on
// non-200 and on slow acks, so the handler acknowledges immediately and lets
// the sink do its work asynchronously.
type WebhookHandler struct {
	sink              bus.EventSink
	verificationToken string
	logger            *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rpm      int
}

// NewWebhookHandler creates the HTTP ingress. rpm caps events accepted per
// channel per minute; zero disables the limit. verificationToken is the
// legacy request token; empty skips the check.
func NewWebhookHandler(sink bus.EventSink, verificationToken string, rpm int, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		sink:              sink,
		verificationToken: verificationToken,
		logger:            logger,
		limiters:          make(map[string]*rate.Limiter),
		rpm:               rpm,
	}
}

// Routes registers the handler's endpoints on mux.
func (h *WebhookHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /slack/events", h.handleEvents)
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *WebhookHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *WebhookHandler) allow(channelID string) bool {
	if h.rpm <= 0 {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[channelID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(h.rpm)/60.0), h.rpm)
		h.limiters[channelID] = lim
	}
	return lim.Allow()
}

func (h *WebhookHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	env, err := ParseEnvelope(body)
	if err != nil {
		h.logger.Warn("malformed event payload", "error", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if env.Challenge != "" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"challenge": env.Challenge})
		return
	}

	if h.verificationToken != "" && env.Token != h.verificationToken {
		h.logger.Warn("event with bad verification token")
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}

	if env.Event == nil {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ignored"))
		return
	}

	if !h.allow(env.Event.ChannelID) {
		h.logger.Warn("channel over event rate limit", "channel", env.Event.ChannelID)
		// Still 200: a 429 would make Slack redeliver the same event.
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("rate_limited"))
		return
	}

	decision := h.sink.HandleEvent(*env.Event)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(string(decision)))
}

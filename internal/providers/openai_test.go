package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anabananasophia/Talia-bot/internal/config"
)

func newTestProvider(url string) *OpenAIProvider {
	p := NewOpenAIProvider(config.ProviderConfig{
		APIKey:    "sk-test",
		APIBase:   url,
		Model:     "gpt-4.1",
		MaxTokens: 600,
	})
	p.retryConfig = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	return p
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth header: got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "  On it, boss.  "}},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	reply, err := p.Complete(context.Background(), "You are the CFO.", "What's our runway?")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "On it, boss." {
		t.Fatalf("reply: got %q", reply)
	}

	if got.Model != "gpt-4.1" {
		t.Errorf("model: got %q", got.Model)
	}
	if got.MaxTokens != 600 {
		t.Errorf("max_tokens: got %d", got.MaxTokens)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages: got %+v", got.Messages)
	}
}

func TestOpenAIProvider_RetriesOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	reply, err := p.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "ok" || calls != 2 {
		t.Fatalf("got reply=%q calls=%d", reply, calls)
	}
}

func TestOpenAIProvider_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models" {
			t.Errorf("request: got %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth header: got %q", auth)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	if err := p.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestOpenAIProvider_PingBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_api_key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	err := p.Ping(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got %v", err)
	}
}

func TestOpenAIProvider_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"invalid_api_key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	if _, err := p.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("want error on 401")
	}
	if calls != 1 {
		t.Fatalf("401 retried: %d calls", calls)
	}
}

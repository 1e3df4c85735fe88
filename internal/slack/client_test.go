package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_PostMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer xoxb-test" {
			t.Errorf("auth: got %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := NewClient("xoxb-test", "", srv.URL)
	if err := c.PostMessage(context.Background(), "C1", "111.000", "hello"); err != nil {
		t.Fatal(err)
	}
	if got["channel"] != "C1" || got["thread_ts"] != "111.000" || got["text"] != "hello" {
		t.Fatalf("request body: got %v", got)
	}
}

func TestClient_PostMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	c := NewClient("xoxb-test", "", srv.URL)
	err := c.PostMessage(context.Background(), "C1", "", "hello")
	if err == nil {
		t.Fatal("want error")
	}
}

func TestClient_LatestThreadTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.replies" {
			t.Errorf("path: got %q", r.URL.Path)
		}
		if ch := r.URL.Query().Get("channel"); ch != "C1" {
			t.Errorf("channel: got %q", ch)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"messages": []map[string]string{
				{"ts": "111.000"},
				{"ts": "112.000"},
				{"ts": "115.250"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("xoxb-test", "", srv.URL)
	ts, err := c.LatestThreadTimestamp(context.Background(), "C1", "111.000")
	if err != nil {
		t.Fatal(err)
	}
	if ts != "115.250" {
		t.Fatalf("latest ts: got %q", ts)
	}
}

func TestClient_OpenDM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":      true,
			"channel": map[string]string{"id": "D42"},
		})
	}))
	defer srv.Close()

	c := NewClient("xoxb-test", "", srv.URL)
	id, err := c.OpenDM(context.Background(), "U02FOUNDER")
	if err != nil {
		t.Fatal(err)
	}
	if id != "D42" {
		t.Fatalf("dm channel: got %q", id)
	}
}

package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a lightweight Slack Web API client using net/http. It covers
// only the calls the engine needs.
type Client struct {
	baseURL    string
	botToken   string
	appToken   string
	httpClient *http.Client
}

// NewClient creates a Web API client. apiBase overrides the default
// https://slack.com/api endpoint, which the tests use.
func NewClient(botToken, appToken, apiBase string) *Client {
	if apiBase == "" {
		apiBase = "https://slack.com/api"
	}
	return &Client{
		baseURL:    apiBase,
		botToken:   botToken,
		appToken:   appToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// doJSON performs an authenticated JSON API call and decodes the response
// into out, which must embed the ok/error pair.
func (c *Client) doJSON(ctx context.Context, method string, token string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+method, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack api %s: %w", method, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("slack api %s: decode: %w", method, err)
	}
	return nil
}

// PostMessage posts text into a channel. A non-empty threadTS makes it a
// threaded reply.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	body := map[string]string{
		"channel": channelID,
		"text":    text,
	}
	if threadTS != "" {
		body["thread_ts"] = threadTS
	}

	var resp apiResponse
	if err := c.doJSON(ctx, "chat.postMessage", c.botToken, body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage: %s", resp.Error)
	}
	return nil
}

// LatestThreadTimestamp returns the ts of the newest message in a thread,
// or "" when the thread cannot be read.
func (c *Client) LatestThreadTimestamp(ctx context.Context, channelID, threadTS string) (string, error) {
	q := url.Values{}
	q.Set("channel", channelID)
	q.Set("ts", threadTS)
	q.Set("limit", "50")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/conversations.replies?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack api conversations.replies: %w", err)
	}
	defer httpResp.Body.Close()

	var resp struct {
		apiResponse
		Messages []struct {
			TS string `json:"ts"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("conversations.replies: decode: %w", err)
	}
	if !resp.OK {
		return "", fmt.Errorf("conversations.replies: %s", resp.Error)
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[len(resp.Messages)-1].TS, nil
}

// OpenDM opens (or reuses) a direct message channel with a user and returns
// its channel ID.
func (c *Client) OpenDM(ctx context.Context, userID string) (string, error) {
	var resp struct {
		apiResponse
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	err := c.doJSON(ctx, "conversations.open", c.botToken, map[string]string{"users": userID}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("conversations.open: %s", resp.Error)
	}
	return resp.Channel.ID, nil
}

// AuthTest verifies the bot token and returns the bot's own user ID.
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	var resp struct {
		apiResponse
		UserID string `json:"user_id"`
	}
	if err := c.doJSON(ctx, "auth.test", c.botToken, map[string]string{}, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("auth.test: %s", resp.Error)
	}
	return resp.UserID, nil
}

// ConnectionsOpen requests a Socket Mode websocket URL using the app token.
func (c *Client) ConnectionsOpen(ctx context.Context) (string, error) {
	var resp struct {
		apiResponse
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, "apps.connections.open", c.appToken, map[string]string{}, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("apps.connections.open: %s", resp.Error)
	}
	return resp.URL, nil
}

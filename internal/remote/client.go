package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"fitlog-sync-service/internal/config"
	"fitlog-sync-service/internal/store"
)

const maxResponseBytes = 1 << 20

// Client talks to the fitness API, one endpoint per action type. Failures
// come back as *StatusError or *TransportError so callers can branch on the
// four outcome classes (unauthorized, conflict, network, other).
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.GetTimeout()},
		token:   cfg.AuthToken,
	}
}

// SetToken swaps the bearer token, e.g. after the auth layer re-logs in.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Execute delivers a queued action to its endpoint. The payload was
// validated by whoever queued it; here it is forwarded as-is.
func (c *Client) Execute(ctx context.Context, action store.PendingAction) (json.RawMessage, error) {
	switch action.Type {
	case store.ActionLogWorkout:
		return c.post(ctx, "/api/workouts", action.Payload)
	case store.ActionLogCalories:
		return c.post(ctx, "/api/calories", action.Payload)
	case store.ActionSetIntent:
		return c.post(ctx, "/api/intent", action.Payload)
	case store.ActionCreatePost:
		return c.post(ctx, "/api/posts", action.Payload)
	case store.ActionAddComment:
		var p CommentPayload
		if err := json.Unmarshal(action.Payload, &p); err != nil {
			return nil, fmt.Errorf("malformed comment payload: %w", err)
		}
		return c.post(ctx, "/api/posts/"+url.PathEscape(p.PostID)+"/comments", action.Payload)
	default:
		return nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}

// Ping probes the remote health endpoint. Used by the connectivity watcher.
func (c *Client) Ping(ctx context.Context, path string) error {
	if path == "" {
		path = "/health"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	return nil
}

func (c *Client) post(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	return nil, &StatusError{Status: resp.StatusCode, Message: errorMessage(data)}
}

// errorMessage pulls a human-readable message out of an error response body.
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "no response body"
	}
	return msg
}

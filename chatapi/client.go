// Package chatapi is the HTTP client for the local WhatsApp bridge API.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to the bridge REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new bridge API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// StatusError is returned for non-2xx responses from the bridge
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat api: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Chat is a conversation as reported by the bridge
type Chat struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsGroup     bool   `json:"isGroup"`
	UnreadCount int    `json:"unreadCount"`
	IsReadOnly  bool   `json:"isReadOnly"`
}

// Message is a chat message as reported by the bridge
type Message struct {
	ID        string `json:"id"`
	ChatID    string `json:"chatId"`
	ChatName  string `json:"chatName"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	FromMe    bool   `json:"fromMe"`
	Timestamp string `json:"timestamp"` // RFC3339, may be empty
}

// ParsedTimestamp returns the message timestamp, zero if absent or unparseable
func (m *Message) ParsedTimestamp() time.Time {
	if m.Timestamp == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
		return t
	}
	return time.Time{}
}

// UserInfo describes the account behind the bridge
type UserInfo struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	WID      int    `json:"wid"`
	Platform string `json:"platform"`
}

// envelope is the bridge's standard response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// ListChats fetches the list of all chats
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.get(ctx, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListUnreadChats fetches the list of chats with unread messages
func (c *Client) ListUnreadChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	if err := c.get(ctx, "/unread-chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// ListUnreadMessages fetches up to limit unread messages from a chat
func (c *Client) ListUnreadMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var msgs []Message
	if err := c.get(ctx, "/chats/"+url.PathEscape(chatID)+"/unread-messages", q, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecentMessages fetches the latest messages from a chat
func (c *Client) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var msgs []Message
	if err := c.get(ctx, "/chats/"+url.PathEscape(chatID)+"/messages", q, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SearchMessages searches messages containing the query
func (c *Client) SearchMessages(ctx context.Context, query string, limit int) ([]Message, error) {
	q := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
	var msgs []Message
	if err := c.get(ctx, "/search-messages", q, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetUserInfo fetches account information
func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/user-info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SendMessage sends a message to a chat
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]string{"chat_id": chatID, "message": text}
	return c.post(ctx, "/send-message", payload)
}

// SendMessageToSelf sends a message to the user's own chat
func (c *Client) SendMessageToSelf(ctx context.Context, text string) error {
	payload := map[string]string{"message": text}
	return c.post(ctx, "/send-message-to-self", payload)
}

// MarkChatRead marks a chat as read on the platform.
// The triage pipeline never calls this; the monitor is a passive observer.
func (c *Client) MarkChatRead(ctx context.Context, chatID string) error {
	return c.post(ctx, "/chats/"+url.PathEscape(chatID)+"/mark-as-read", nil)
}

// MarkAllRead marks all chats as read. Never called by the triage pipeline.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.post(ctx, "/chats/mark-all-as-read", nil)
}

// get performs a GET and decodes the enveloped payload into out.
// Reads are idempotent, so transient failures are retried once.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
		lastErr = c.doGet(ctx, path, query, out)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, out)
}

// post performs a POST with a JSON payload. Sends are not retried here:
// a duplicate outbound message is worse than a reported failure.
func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat api request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			StatusCode: resp.StatusCode,
			URL:        req.URL.String(),
			Body:       truncate(string(data), 200),
		}
	}

	if out == nil {
		return nil
	}

	// The bridge wraps payloads as {"success": ..., "data": ...}; older
	// endpoints return the payload bare.
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Data != nil {
		data = env.Data
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

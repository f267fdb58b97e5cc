// Package webhook notifies HTTP endpoints about ingested log batches.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/parser"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 1024 * 1024

// Notification is the JSON payload posted for one ingested batch.
type Notification struct {
	ServerID    string            `json:"server_id"`
	ReceivedAt  time.Time         `json:"received_at"`
	LineCount   int               `json:"line_count"`
	ParsedCount int               `json:"parsed_count"`
	FailedCount int               `json:"failed_count"`
	GameOvers   []parser.GameOver `json:"game_overs,omitempty"`
}

// NewNotification summarizes a classified batch.
func NewNotification(serverID string, receivedAt time.Time, batch *parser.BatchResult) *Notification {
	n := &Notification{
		ServerID:    serverID,
		ReceivedAt:  receivedAt,
		LineCount:   batch.TotalLines,
		ParsedCount: batch.ParsedCount,
		FailedCount: batch.FailedCount,
	}
	for _, r := range batch.Results {
		if g, ok := r.Event.(parser.GameOver); ok {
			n.GameOvers = append(n.GameOvers, g)
		}
	}
	return n
}

// ShouldFire reports whether a webhook with the given trigger fires for n.
func ShouldFire(trigger config.WebhookTrigger, n *Notification) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	case config.WebhookTriggerOnFailures:
		return n.FailedCount > 0
	default:
		return len(n.GameOvers) > 0
	}
}

// Client sends notifications to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a notification to a webhook endpoint.
func (c *Client) Send(ctx context.Context, n *Notification, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal notification: %w", err))
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cs2log-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/config"
	"github.com/ccollicutt/cs2log/pkg/parser"
)

func newTestNotification() *Notification {
	batch := parser.ParseText(`World triggered "Round_End"
Game Over: competitive de_mirage score 16:14 after 30 min
unparseable`)
	return NewNotification("alpha", time.Date(2025, 8, 19, 15, 12, 44, 0, time.UTC), batch)
}

func TestNewNotification(t *testing.T) {
	n := newTestNotification()

	if n.LineCount != 3 || n.ParsedCount != 2 || n.FailedCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", n.LineCount, n.ParsedCount, n.FailedCount)
	}
	if len(n.GameOvers) != 1 || n.GameOvers[0].Map != "de_mirage" {
		t.Errorf("GameOvers = %+v", n.GameOvers)
	}
}

func TestShouldFire(t *testing.T) {
	withGameOver := newTestNotification()
	quiet := &Notification{LineCount: 2, ParsedCount: 2}

	tests := []struct {
		trigger config.WebhookTrigger
		note    *Notification
		want    bool
	}{
		{config.WebhookTriggerOnGameOver, withGameOver, true},
		{config.WebhookTriggerOnGameOver, quiet, false},
		{"", withGameOver, true},
		{config.WebhookTriggerOnFailures, withGameOver, true},
		{config.WebhookTriggerOnFailures, quiet, false},
		{config.WebhookTriggerAlways, quiet, true},
		{config.WebhookTriggerNever, withGameOver, false},
	}

	for _, tt := range tests {
		if got := ShouldFire(tt.trigger, tt.note); got != tt.want {
			t.Errorf("ShouldFire(%q, failed=%d) = %v, want %v", tt.trigger, tt.note.FailedCount, got, tt.want)
		}
	}
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType, receivedAuth, receivedAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedAgent = r.Header.Get("User-Agent")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestNotification(), SendOptions{URL: server.URL})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
	if receivedAgent != "cs2log-webhook" {
		t.Errorf("User-Agent = %q", receivedAgent)
	}
	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	var payload map[string]any
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("failed to parse received payload: %v", err)
	}
	if payload["server_id"] != "alpha" || payload["failed_count"] != float64(1) {
		t.Errorf("payload = %v", payload)
	}
	games, ok := payload["game_overs"].([]any)
	if !ok || len(games) != 1 {
		t.Errorf("game_overs = %v", payload["game_overs"])
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestNotification(), SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestNotification(), SendOptions{URL: server.URL})

	if resp.Success() {
		t.Error("expected failure for 500 response")
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp := NewClient().Send(context.Background(), newTestNotification(), SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure due to timeout")
	}
	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	resp := NewClient().Send(context.Background(), newTestNotification(), SendOptions{URL: "://invalid-url"})

	if resp.Success() {
		t.Error("expected failure for invalid URL")
	}
	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestNotifier_Notify(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hooks := []config.WebhookConfig{
		{Name: "game-over", URL: server.URL, Trigger: config.WebhookTriggerOnGameOver},
		{Name: "failures", URL: server.URL, Trigger: config.WebhookTriggerOnFailures},
		{Name: "never", URL: server.URL, Trigger: config.WebhookTriggerNever},
		{Name: "broken", URL: "http://127.0.0.1:1/unreachable", Trigger: config.WebhookTriggerAlways, Timeout: 100 * time.Millisecond},
	}
	notifier := NewNotifier(NewClient(), hooks, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	started := notifier.Notify(ctx, newTestNotification())
	cancel()
	notifier.Wait()

	if started != 3 {
		t.Errorf("Notify() started %d deliveries, want 3", started)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server received %d requests, want 2", got)
	}
}

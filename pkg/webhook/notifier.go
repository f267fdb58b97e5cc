package webhook

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/config"
)

// Notifier delivers notifications to every configured webhook whose trigger
// matches. Deliveries run in the background; Wait blocks until they finish.
type Notifier struct {
	client   *Client
	webhooks []config.WebhookConfig
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewNotifier creates a Notifier for the given webhooks.
func NewNotifier(client *Client, webhooks []config.WebhookConfig, logger *zap.Logger) *Notifier {
	return &Notifier{client: client, webhooks: webhooks, logger: logger}
}

// Notify starts a delivery for each matching webhook and returns how many were started.
// Deliveries are detached from ctx cancellation so they outlive the request
// that triggered them.
func (n *Notifier) Notify(ctx context.Context, note *Notification) int {
	started := 0
	for _, wh := range n.webhooks {
		if !ShouldFire(wh.Trigger, note) {
			continue
		}
		started++

		n.wg.Add(1)
		go func(wh config.WebhookConfig) {
			defer n.wg.Done()
			n.deliver(context.WithoutCancel(ctx), wh, note)
		}(wh)
	}
	return started
}

// Wait blocks until all started deliveries have completed.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, wh config.WebhookConfig, note *Notification) {
	name := wh.Name
	if name == "" {
		name = wh.URL
	}

	resp := n.client.Send(ctx, note, SendOptions{URL: wh.URL, Token: wh.Token, Timeout: wh.Timeout})
	if !resp.Success() {
		n.logger.Warn("webhook delivery failed",
			zap.String("webhook", name),
			zap.String("server_id", note.ServerID),
			zap.Int("status", resp.StatusCode),
			zap.Error(resp.Error))
		return
	}

	n.logger.Info("webhook delivered",
		zap.String("webhook", name),
		zap.String("server_id", note.ServerID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration))
}

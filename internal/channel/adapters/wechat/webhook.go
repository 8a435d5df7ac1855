package wechat

import (
	"context"
	"errors"
	"sync"

	"github.com/memohai/filesummary/internal/channel"
)

// ErrNotStarted is returned when a delivery arrives before the adapter starts.
var ErrNotStarted = errors.New("webhook adapter not started")

// Webhook is the inbound adapter fed by the HTTP events endpoint.
type Webhook struct {
	mu      sync.RWMutex
	handler channel.InboundHandler
}

// NewWebhook creates an idle webhook adapter.
func NewWebhook() *Webhook {
	return &Webhook{}
}

func (w *Webhook) Name() string {
	return "webhook"
}

// Start records the dispatch handler; deliveries are pushed by the HTTP layer.
func (w *Webhook) Start(_ context.Context, handler channel.InboundHandler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = handler
	return nil
}

func (w *Webhook) Stop(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = nil
	return nil
}

// Deliver dispatches one message synchronously.
func (w *Webhook) Deliver(ctx context.Context, msg channel.InboundMessage) (channel.Verdict, error) {
	w.mu.RLock()
	handler := w.handler
	w.mu.RUnlock()
	if handler == nil {
		return channel.Continue, ErrNotStarted
	}
	return handler(ctx, msg), nil
}

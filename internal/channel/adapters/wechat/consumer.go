package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/memohai/filesummary/internal/channel"
)

// ErrPoison marks a delivery that can never be processed (bad JSON).
var ErrPoison = errors.New("poison message")

// ConsumerConfig configures the AMQP inbound adapter.
type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
}

// Consumer reads gateway events from a durable RabbitMQ queue.
type Consumer struct {
	cfg    ConsumerConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	wg   sync.WaitGroup
}

// NewConsumer creates an AMQP adapter; it connects on Start.
func NewConsumer(log *slog.Logger, cfg ConsumerConfig) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	return &Consumer{
		cfg:    cfg,
		logger: log.With(slog.String("adapter", "amqp"), slog.String("queue", cfg.Queue)),
	}
}

func (c *Consumer) Name() string {
	return "amqp"
}

// Start declares the queue and consumes it until ctx is done or Stop is called.
func (c *Consumer) Start(ctx context.Context, handler channel.InboundHandler) error {
	if strings.TrimSpace(c.cfg.URL) == "" || strings.TrimSpace(c.cfg.Queue) == "" {
		return fmt.Errorf("amqp url and queue are required")
	}
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("consume: %w", err)
	}

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					c.logger.Warn("delivery channel closed")
					return
				}
				c.handleDelivery(ctx, d, handler)
			}
		}
	}()
	c.logger.Info("consumer started")
	return nil
}

// Stop closes the channel and connection and waits for the loop to exit.
func (c *Consumer) Stop(context.Context) error {
	c.mu.Lock()
	ch, conn := c.ch, c.conn
	c.ch, c.conn = nil, nil
	c.mu.Unlock()

	var errs []error
	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	c.wg.Wait()
	return errors.Join(errs...)
}

// handleDelivery decodes and dispatches one delivery. Poison messages are
// acked and dropped; everything else is acked once the handler returns since
// a run reports its own failures to the chat.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler channel.InboundHandler) {
	msg, err := decodeDelivery(d)
	if err != nil {
		c.logger.Warn("dropping poison delivery", slog.Uint64("tag", d.DeliveryTag), slog.Any("error", err))
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack poison failed", slog.Any("error", ackErr))
		}
		return
	}
	verdict := handler(ctx, msg)
	if err := d.Ack(false); err != nil {
		c.logger.Error("ack failed", slog.Uint64("tag", d.DeliveryTag), slog.Any("error", err))
		return
	}
	c.logger.Debug("delivery handled", slog.Int64("new_msg_id", msg.NewMsgID), slog.String("verdict", verdict.String()))
}

func decodeDelivery(d amqp.Delivery) (channel.InboundMessage, error) {
	var msg channel.InboundMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return channel.InboundMessage{}, fmt.Errorf("%w: %v", ErrPoison, err)
	}
	return msg, nil
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/metrics"
	"github.com/iliyamo/rail-booking/internal/model"
)

const maxBackoff = 30 * time.Second

// Consumer reads notification events from the queue and persists them with
// status DELIVERED.
type Consumer struct {
	url     string
	queue   string
	store   Store
	log     logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewConsumer(url, queue string, store Store, log logger.Logger, m *metrics.Metrics, timeout time.Duration) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{url: url, queue: queue, store: store, log: log, metrics: m, timeout: timeout}
}

// Run consumes until ctx is done, reconnecting with exponential backoff when
// the broker is unreachable or drops the connection.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("notification-consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("notification-consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("notification-consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, c.queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("notification-consumer: consuming", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.Process(ctx, d)
		}
	}
}

// Process handles one delivery.  Malformed bodies are rejected without
// requeue; storage failures are requeued.
func (c *Consumer) Process(ctx context.Context, d amqp.Delivery) {
	err := c.handle(ctx, d.Body)
	switch {
	case err == nil:
		c.metrics.NotificationConsumed(metrics.ResultStored)
		_ = d.Ack(false)
	case errors.Is(err, errMalformed):
		c.metrics.NotificationConsumed(metrics.ResultMalformed)
		c.log.Error("notification-consumer: rejecting message", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
	default:
		c.metrics.NotificationConsumed(metrics.ResultRetry)
		c.log.Error("notification-consumer: store failed", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, true)
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	n, err := ev.Notification(model.NotificationDelivered)
	if err != nil {
		return err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.store.SaveNotification(ctx, n)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

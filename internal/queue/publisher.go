// Package queue publishes domain events to RabbitMQ for the notification
// collaborator and consumes them in development. Delivery is fire-and-forget:
// publish errors are logged and returned but callers never fail a committed
// state change because of them, and publishing always happens after locks are
// released.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/logger"
)

type Publisher struct {
	url   string
	queue string
}

// NewPublisher creates a publisher for the given broker URL and queue name.
// An empty URL yields a disabled publisher that drops events silently, so
// local setups without a broker keep working.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Publish sends one event as a persistent JSON message on a durable queue.
// Each call dials a fresh connection; event volume here is per state change,
// not per request, so connection reuse is not worth the reconnect machinery.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	if p == nil || p.url == "" {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		logger.Warn("amqp dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("amqp channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		logger.Warn("amqp queue declare failed", "queue", p.queue, "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		logger.Warn("amqp publish failed", "queue", p.queue, "type", ev.Type, "error", err)
		return err
	}
	return nil
}

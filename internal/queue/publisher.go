package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends events to a RabbitMQ queue.  Each publish dials its own
// connection; the event rate is a handful per hour.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
}

func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if queue == "" {
		queue = PasswordResetQueue
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// NotifyPasswordReset publishes ev as a persistent message.  Errors are
// logged and returned so the caller can roll back the issued token.
func (p *Publisher) NotifyPasswordReset(ctx context.Context, ev PasswordResetRequested) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.publish(ctx, body); err != nil {
		p.log.Error("publish password reset", zap.Uint64("user_id", ev.UserID), zap.Error(err))
		return err
	}
	p.log.Info("password reset queued", zap.Uint64("user_id", ev.UserID))
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
}

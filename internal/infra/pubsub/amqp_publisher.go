package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"notekeeper/internal/domain/service"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpPublisher sends events as persistent JSON messages to a durable queue through the default exchange.
// One connection and channel are held for the process; a closed channel is reopened on the next publish.
type amqpPublisher struct {
	url    string
	queue  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the queue.
func NewAMQPPublisher(url, queue string, logger *slog.Logger) (service.EventPublisher, error) {
	p := &amqpPublisher{url: url, queue: queue, logger: logger}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *amqpPublisher) connectLocked() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return errors.Wrap(err, "rabbitmq: dial failed")
		}
		p.conn = conn
		p.ch = nil
	}

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return errors.Wrap(err, "rabbitmq: channel open failed")
		}

		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()

			return errors.Wrap(err, "rabbitmq: queue declare failed")
		}
		p.ch = ch
	}

	return nil
}

// PublishAuthEvent publishes the event with the queue name as routing key.
func (p *amqpPublisher) PublishAuthEvent(ctx context.Context, event *service.AuthEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}

	headers := amqp.Table{}
	for key, value := range eventAttributes(event) {
		headers[key] = value
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.EventID,
		CorrelationId: event.RequestID,
		Type:          string(event.Type),
		Timestamp:     event.OccurredAt.UTC(),
		Headers:       headers,
		Body:          body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(); err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return errors.Wrap(err, "rabbitmq: publish failed")
	}

	p.logger.Debug("[AMQP] Event published",
		slog.String("event_id", event.EventID),
		slog.String("type", string(event.Type)),
	)

	return nil
}

// Close closes the channel and the connection.
func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil && !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil

	for _, err := range errs {
		if err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

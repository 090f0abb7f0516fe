package events

import (
	"context"
	"errors"
	"strings"

	"github.com/medimg-lab/apiserver/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes audit entries to a RabbitMQ queue.
type RabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitPublisher connects to RabbitMQ and declares the audit queue.
func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}

	return &RabbitPublisher{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

// PublishAudit sends one audit entry to the queue as persistent JSON.
func (p *RabbitPublisher) PublishAudit(ctx context.Context, entry types.AuditEntry) error {
	data, attrs, err := marshalAudit(entry)
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range attrs {
		headers[k] = v
	}

	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Body:         data,
	})
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

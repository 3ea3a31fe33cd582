package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher pushes raw intake requests onto the audit queue for downstream
// processing and replay. Publishing happens after the database commit and is
// best-effort: the caller logs failures but does not fail the request.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

type rabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger
}

// NewRabbitPublisher dials the broker and declares the durable audit queue.
func NewRabbitPublisher(url, queueName string, logger *slog.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("Connected to message broker", "queue", queueName)

	return &rabbitPublisher{
		conn:    conn,
		channel: channel,
		queue:   queueName,
		logger:  logger,
	}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, body []byte) error {
	err := p.channel.PublishWithContext(
		ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish message", "queue", p.queue, "error", err)
		return err
	}

	return nil
}

func (p *rabbitPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

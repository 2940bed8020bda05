// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of [*amqp.Channel] the queue needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Queue is a [Notifier] that publishes jobs to RabbitMQ.
type Queue struct {
	mu        sync.Mutex
	publisher Publisher
	queue     string
	logger    *slog.Logger
	now       func() time.Time
}

// NewQueue wraps an open channel. The queue must already be declared (see [Broker]).
func NewQueue(publisher Publisher, logger *slog.Logger) *Queue {
	return &Queue{publisher: publisher, queue: QueueName, logger: logger, now: time.Now}
}

// SendConfirmation enqueues a confirmation email.
func (queue *Queue) SendConfirmation(ctx context.Context, event ConfirmationRequested) error {
	return queue.publish(ctx, confirmationJob(event))
}

// SendPasswordReset enqueues a password-reset email.
func (queue *Queue) SendPasswordReset(ctx context.Context, event ResetRequested) error {
	return queue.publish(ctx, resetJob(event))
}

func (queue *Queue) publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("mailer_queue_encode_failed: %w", err)
	}

	message := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    queue.now().UTC(),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	queue.mu.Lock()
	defer queue.mu.Unlock()

	if err := queue.publisher.PublishWithContext(ctx, "", queue.queue, false, false, message); err != nil {
		return fmt.Errorf("mailer_queue_publish_failed: %w", err)
	}

	queue.logger.DebugContext(ctx, "mail_job_enqueued", slog.String("kind", string(job.Kind)))
	return nil
}

// # Broker Connection

// Broker owns the AMQP connection and the channels of the publisher and the consumer.
type Broker struct {
	connection *amqp.Connection
	publish    *amqp.Channel
	consume    *amqp.Channel
}

// prefetch bounds unacknowledged deliveries held by one worker.
const prefetch = 10

/*
Dial connects to RabbitMQ and declares the durable mail queue.

Parameters:
  - url: amqp:// connection URL

Returns:
  - *Broker: Open connection with publish and consume channels
  - error: Dial, channel or declaration failures
*/
func Dial(url string) (*Broker, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("mailer: dial broker: %w", err)
	}

	broker := &Broker{connection: connection}
	if broker.publish, err = connection.Channel(); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mailer: open publish channel: %w", err)
	}
	if broker.consume, err = connection.Channel(); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mailer: open consume channel: %w", err)
	}

	if _, err := broker.publish.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mailer: declare queue: %w", err)
	}

	if err := broker.consume.Qos(prefetch, 0, false); err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("mailer: set qos: %w", err)
	}

	return broker, nil
}

// Publisher returns the channel used by [Queue].
func (broker *Broker) Publisher() Publisher {
	return broker.publish
}

// Deliveries starts consuming the mail queue with manual acknowledgement.
func (broker *Broker) Deliveries() (<-chan amqp.Delivery, error) {
	deliveries, err := broker.consume.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("mailer: consume: %w", err)
	}
	return deliveries, nil
}

// Close tears down both channels and the connection.
func (broker *Broker) Close() error {
	return broker.connection.Close()
}

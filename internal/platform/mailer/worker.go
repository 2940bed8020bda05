// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Worker consumes mail jobs and delivers them through a [Sender].
type Worker struct {
	sender Sender
	logger *slog.Logger
}

// NewWorker creates a worker for the given sender.
func NewWorker(sender Sender, logger *slog.Logger) *Worker {
	return &Worker{sender: sender, logger: logger}
}

// Run handles deliveries until ctx is cancelled or the channel closes.
func (worker *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	worker.logger.Info("mail_worker_started", slog.String("queue", QueueName))
	defer worker.logger.Info("mail_worker_stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			worker.Handle(ctx, delivery)
		}
	}
}

/*
Handle processes one delivery.

Description: Malformed jobs are dropped (nack without requeue) because they can
never succeed. Send failures are also not requeued, matching the no-retry policy
of the rest of the system.
*/
func (worker *Worker) Handle(ctx context.Context, delivery amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		worker.logger.WarnContext(ctx, "mail_job_malformed", slog.Any("error", err))
		_ = delivery.Nack(false, false)
		return
	}

	if err := worker.Deliver(ctx, job); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrMalformedJob) {
			level = slog.LevelWarn
		}
		worker.logger.Log(ctx, level, "mail_job_failed",
			slog.String("kind", string(job.Kind)),
			slog.Any("error", err),
		)
		_ = delivery.Nack(false, false)
		return
	}

	_ = delivery.Ack(false)
}

// Deliver renders and sends one job.
func (worker *Worker) Deliver(ctx context.Context, job Job) error {
	message, err := Render(job)
	if err != nil {
		return err
	}

	if err := worker.sender.Send(ctx, message); err != nil {
		return err
	}

	worker.logger.InfoContext(ctx, "mail_sent", slog.String("kind", string(job.Kind)))
	return nil
}

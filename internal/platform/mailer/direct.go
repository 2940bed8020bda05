// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sendTimeout bounds one in-process delivery.
const sendTimeout = 30 * time.Second

// Direct is a [Notifier] that delivers in a background goroutine without a broker.
type Direct struct {
	worker *Worker
	wg     sync.WaitGroup
}

// NewDirect creates an in-process notifier on top of sender.
func NewDirect(sender Sender, logger *slog.Logger) *Direct {
	return &Direct{worker: NewWorker(sender, logger)}
}

// SendConfirmation schedules a confirmation email and returns immediately.
func (direct *Direct) SendConfirmation(ctx context.Context, event ConfirmationRequested) error {
	direct.dispatch(ctx, confirmationJob(event))
	return nil
}

// SendPasswordReset schedules a password-reset email and returns immediately.
func (direct *Direct) SendPasswordReset(ctx context.Context, event ResetRequested) error {
	direct.dispatch(ctx, resetJob(event))
	return nil
}

func (direct *Direct) dispatch(ctx context.Context, job Job) {
	direct.wg.Add(1)
	go func() {
		defer direct.wg.Done()

		// Detach from the request so the send outlives the response.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		if err := direct.worker.Deliver(sendCtx, job); err != nil {
			direct.worker.logger.ErrorContext(sendCtx, "mail_job_failed",
				slog.String("kind", string(job.Kind)),
				slog.Any("error", err),
			)
		}
	}()
}

// Wait blocks until every scheduled delivery has finished. Used at shutdown and in tests.
func (direct *Direct) Wait() {
	direct.wg.Wait()
}

// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers the account emails: address confirmation and password reset.

Delivery is always fire-and-forget from the caller's point of view. Two
[Notifier] implementations exist:

  - Queue publishes a [Job] to the durable RabbitMQ queue; a [Worker] renders
    and sends it.
  - Direct renders and sends in a goroutine. It is used when no broker is configured.

Failures are logged, never surfaced to the HTTP caller.
*/
package mailer

import (
	"context"
	"errors"
)

// QueueName is the durable RabbitMQ queue carrying outbound mail jobs.
const QueueName = "mail.outbound"

// # Events

// ConfirmationRequested asks for an address-confirmation email.
type ConfirmationRequested struct {
	Email    string
	Username string
	// Host is the public base URL, e.g. "https://contacts.example/".
	Host  string
	Token string
}

// ResetRequested asks for a password-reset email.
type ResetRequested struct {
	Email    string
	Username string
	Host     string
	Token    string
}

// Notifier accepts account email requests.
type Notifier interface {
	SendConfirmation(ctx context.Context, event ConfirmationRequested) error
	SendPasswordReset(ctx context.Context, event ResetRequested) error
}

// Discard drops every request. It is the default when nothing is wired.
type Discard struct{}

func (Discard) SendConfirmation(context.Context, ConfirmationRequested) error { return nil }
func (Discard) SendPasswordReset(context.Context, ResetRequested) error       { return nil }

// # Jobs

// Kind selects the template a [Job] is rendered with.
type Kind string

const (
	KindConfirmation  Kind = "confirmation"
	KindPasswordReset Kind = "password_reset"
)

// Job is the JSON document carried on the queue.
type Job struct {
	Kind     Kind   `json:"kind"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Host     string `json:"host"`
	Token    string `json:"token"`
}

// ErrMalformedJob is returned for jobs that can never be delivered.
var ErrMalformedJob = errors.New("mailer: malformed job")

// Validate rejects jobs without a recipient, token or known kind.
func (job Job) Validate() error {
	if job.Email == "" || job.Token == "" {
		return ErrMalformedJob
	}
	switch job.Kind {
	case KindConfirmation, KindPasswordReset:
		return nil
	default:
		return ErrMalformedJob
	}
}

func confirmationJob(event ConfirmationRequested) Job {
	return Job{Kind: KindConfirmation, Email: event.Email, Username: event.Username, Host: event.Host, Token: event.Token}
}

func resetJob(event ResetRequested) Job {
	return Job{Kind: KindPasswordReset, Email: event.Email, Username: event.Username, Host: event.Host, Token: event.Token}
}

// # Delivery

// Message is a rendered email ready for a [Sender].
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender hands a rendered message to a mail transport.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

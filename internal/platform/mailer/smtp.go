// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the MAIL_* settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	StartTLS bool
	SSLTLS   bool
}

// SMTPSender delivers messages with wneessen/go-mail.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender validates the configuration once so every later Send can only fail on the network.
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("mailer: MAIL_SERVER is required")
	}
	if _, err := config.client(); err != nil {
		return nil, err
	}
	return &SMTPSender{config: config}, nil
}

func (config SMTPConfig) client() (*mail.Client, error) {
	options := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(15 * time.Second),
	}

	switch {
	case config.SSLTLS:
		options = append(options, mail.WithSSL())
	case config.StartTLS:
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		options = append(options, mail.WithTLSPolicy(mail.NoTLS))
	}

	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	client, err := mail.NewClient(config.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("mailer: smtp client: %w", err)
	}
	return client, nil
}

/*
Send builds a MIME message and delivers it in one SMTP session.

Parameters:
  - ctx: context.Context
  - message: Message

Returns:
  - error: Address, dial or delivery failures
*/
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(sender.config.FromName, sender.config.From); err != nil {
		return fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return fmt.Errorf("mailer: to address: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextHTML, message.HTML)

	client, err := sender.config.client()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: smtp send: %w", err)
	}

	return nil
}

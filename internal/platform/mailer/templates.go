// Copyright (c) 2026 Addressbook. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const confirmationHTML = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>Thanks for registering. Please confirm your email address by following the link below.</p>
  <p><a href="{{.Host}}api/users/confirmed_email/{{.Token}}">Confirm email</a></p>
  <p>The link is valid for 7 days.</p>
</body>
</html>`

const resetHTML = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>We received a request to reset your password. Use the token below with
  <code>POST {{.Host}}api/auth/password/reset</code>.</p>
  <p><strong>{{.Token}}</strong></p>
  <p>The token is valid for one hour. If you did not ask for a reset, ignore this email.</p>
</body>
</html>`

var templates = map[Kind]struct {
	subject string
	body    *template.Template
}{
	KindConfirmation:  {"Confirm your email", template.Must(template.New("confirmation").Parse(confirmationHTML))},
	KindPasswordReset: {"Reset your password", template.Must(template.New("password_reset").Parse(resetHTML))},
}

/*
Render turns a job into a deliverable message.

Parameters:
  - job: Job

Returns:
  - Message: Subject and HTML body addressed to job.Email
  - error: ErrMalformedJob or template execution failures
*/
func Render(job Job) (Message, error) {
	if err := job.Validate(); err != nil {
		return Message{}, err
	}

	tmpl := templates[job.Kind]

	data := job
	if !strings.HasSuffix(data.Host, "/") {
		data.Host += "/"
	}

	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("mailer: render %s: %w", job.Kind, err)
	}

	return Message{To: job.Email, Subject: tmpl.subject, HTML: body.String()}, nil
}

// Package mailer sends transactional email.
package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ResendMailer delivers mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(_ context.Context, msg Message) error {
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

// LogMailer logs messages instead of sending them. Used in development and
// when RESEND_API_KEY is unset.
type LogMailer struct {
	log *logrus.Logger
}

func NewLogMailer(log *logrus.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("email not sent, no provider configured")
	m.log.WithField("to", msg.To).Debug(msg.HTML)
	return nil
}

// AccessResetEmail builds the message carrying the one-time reset link.
func AccessResetEmail(to, link string) Message {
	escaped := html.EscapeString(link)
	return Message{
		To:      to,
		Subject: "Reset your MindHaven access",
		HTML: fmt.Sprintf(`<p>We received a request to reset access to your MindHaven account.</p>
<p><a href="%s">Reset access</a></p>
<p>This link expires in one hour and can be used once. If you did not ask for it, you can ignore this email.</p>
<p style="color:#888">%s</p>`, escaped, escaped),
	}
}

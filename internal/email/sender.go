// Package email delivers outbound mail for approved agent actions: lead
// follow-ups and manager escalation alerts.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"salesdesk_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

type Sender interface {
	SendFollowupEmail(ctx context.Context, toEmail, subject, body string) error
	SendManagerAlertEmail(ctx context.Context, toEmail, leadName, reason string) error
}

// NoopSender is used when outbound email is disabled. Sends succeed without
// delivering anything, so the action pipeline keeps working in dev setups.
type NoopSender struct{}

func (NoopSender) SendFollowupEmail(ctx context.Context, toEmail, subject, body string) error {
	return nil
}

func (NoopSender) SendManagerAlertEmail(ctx context.Context, toEmail, leadName, reason string) error {
	return nil
}

// SMTPSender delivers via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) SendFollowupEmail(ctx context.Context, toEmail, subject, body string) error {
	return s.send(ctx, toEmail, subject, body)
}

func (s *SMTPSender) SendManagerAlertEmail(ctx context.Context, toEmail, leadName, reason string) error {
	subject := fmt.Sprintf(subjectManagerAlertFmt, leadName)
	body := fmt.Sprintf("The meeting agent needs a human in the loop.\n\nLead: %s\nReason: %s\n", leadName, reason)
	return s.send(ctx, toEmail, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

const subjectManagerAlertFmt = "Agent escalation: meeting with %s needs attention"

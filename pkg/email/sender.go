// Package email delivers transactional mail over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// Message is one outbound email. Text is optional.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message through one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// NewSender returns an SMTP sender when credentials are configured, and a
// logging sender otherwise.
func NewSender(cfg config.SMTPConfig, logg *logger.Logger) Sender {
	if strings.TrimSpace(cfg.User) == "" || strings.TrimSpace(cfg.Password) == "" {
		return &LogSender{logg: logg}
	}
	return &SMTPSender{cfg: cfg}
}

// SMTPSender sends mail with STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, fmt.Errorf("email recipient required")
	}
	m := mail.NewMsg()
	if err := m.FromFormat(s.cfg.FromName, s.cfg.Sender()); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.Subject)
	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// LogSender records messages instead of sending them. It is used when SMTP is
// not configured.
type LogSender struct {
	logg *logger.Logger
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
	s.logg.Info(ctx, "email.skipped_smtp_unconfigured")
	return nil
}

package email

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

func TestVerificationMessageRendersCode(t *testing.T) {
	msg, err := VerificationMessage("ada@example.com", "042917", 10)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.To != "ada@example.com" || msg.Subject != verificationSubject {
		t.Fatalf("unexpected envelope %+v", msg)
	}
	for _, body := range []string{msg.HTML, msg.Text} {
		if !strings.Contains(body, "042917") || !strings.Contains(body, "10 minutes") {
			t.Fatalf("body missing code or expiry: %q", body)
		}
	}
}

func TestNewSenderFallsBackToLogSender(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "email-test", Level: zerolog.Disabled, Output: io.Discard})

	if s := NewSender(config.SMTPConfig{Host: "smtp.example.com"}, logg); s.Name() != "log" {
		t.Fatalf("expected log sender without credentials, got %s", s.Name())
	}
	s := NewSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, User: "u", Password: "p"}, logg)
	if s.Name() != "smtp" {
		t.Fatalf("expected smtp sender, got %s", s.Name())
	}
	if err := (&LogSender{logg: logg}).Send(context.Background(), Message{To: "x@example.com"}); err != nil {
		t.Fatalf("log sender: %v", err)
	}
}

func TestSMTPSenderBuildsMultipartMessage(t *testing.T) {
	s := &SMTPSender{cfg: config.SMTPConfig{FromName: "KOUMALE", FromEmail: "no-reply@koumale.com"}}
	m, err := s.build(Message{To: "ada@example.com", Subject: "Hi", HTML: "<p>hi</p>", Text: "hi"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if to := m.GetToString(); len(to) != 1 || !strings.Contains(to[0], "ada@example.com") {
		t.Fatalf("unexpected recipients %v", to)
	}
	if _, err := s.build(Message{}); err == nil {
		t.Fatal("expected missing recipient error")
	}
}

package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/tazhibayda/tours-service/internal/helper"
	"github.com/tazhibayda/tours-service/internal/log"
)

// Sender delivers a single plain-text message out of band.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTP(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender is the development transport: it logs instead of delivering.
// The recipient is hashed so addresses stay out of the logs.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	log.L.Info("mail (dev transport)",
		zap.String("to", helper.Hash8(to)),
		zap.String("subject", subject),
		zap.Int("body_len", len(body)),
	)
	return nil
}

// Package mailer delivers one-time passcodes by email.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"campushub/internal/logger"
)

type Mailer interface {
	SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error
}

type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

// SMTP sends plain text messages through a relay.
type SMTP struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp address and sender are required")
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return nil, fmt.Errorf("invalid smtp address %q: %w", cfg.Addr, err)
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail}, nil
}

func (m *SMTP) SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, _ := net.SplitHostPort(m.cfg.Addr)
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	if err := m.send(m.cfg.Addr, auth, m.cfg.From, []string{to}, otpMessage(m.cfg.From, to, code, expiresAt)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func otpMessage(from, to, code string, expiresAt time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Your verification code\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Your code is " + code + ".\r\n")
	b.WriteString("It expires at " + expiresAt.UTC().Format(time.RFC1123) + ".\r\n")
	return []byte(b.String())
}

// Log writes a notice instead of sending mail. Development only.
type Log struct {
	log logger.Logger
	// ShowCode prints the full code; otherwise it is masked.
	ShowCode bool
}

func NewLog(log logger.Logger, showCode bool) *Log {
	return &Log{log: log.With("component", "mailer"), ShowCode: showCode}
}

func (m *Log) SendOTP(_ context.Context, to, code string, expiresAt time.Time) error {
	shown := mask(code)
	if m.ShowCode {
		shown = code
	}
	m.log.Info("otp mail not sent, no smtp relay configured", "to", to, "code", shown, "expires_at", expiresAt)
	return nil
}

func mask(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}

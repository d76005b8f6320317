// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

// Package email delivers account emails (verification codes and password
// reset links).
package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrEmailDisabled is returned by DisabledSender.
var ErrEmailDisabled = errors.New("email delivery is not configured")

// Sender delivers account emails.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, username, code string, expiresIn time.Duration) error
	SendPasswordResetEmail(ctx context.Context, to, username, token string, expiresIn time.Duration) error
}

// NewSender returns an SMTPSender, or a DisabledSender when no SMTP host is
// configured.
func NewSender(cfg *config.EmailConfig) Sender {
	if cfg.SMTPHost == "" {
		logging.Warn().Msg("SMTP not configured; verification and reset emails will not be sent")
		return DisabledSender{}
	}
	return NewSMTPSender(cfg)
}

// SMTPSender sends HTML mail through gomail.
type SMTPSender struct {
	dialer    *gomail.Dialer
	from      string
	clientURL string
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:      cfg.From,
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
	}
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, to, username, code string, expiresIn time.Duration) error {
	body, err := render("verification.html", map[string]string{
		"Username":  username,
		"Code":      code,
		"ExpiresIn": humanDuration(expiresIn),
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Your Mangashelf verification code is %s. It expires in %s.", code, humanDuration(expiresIn))
	return s.send(ctx, to, "Verify your email address", body, text)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, to, username, token string, expiresIn time.Duration) error {
	link := ResetURL(s.clientURL, token)
	body, err := render("password_reset.html", map[string]string{
		"Username":  username,
		"ResetURL":  link,
		"ExpiresIn": humanDuration(expiresIn),
	})
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Reset your Mangashelf password: %s (expires in %s)", link, humanDuration(expiresIn))
	return s.send(ctx, to, "Password reset request", body, text)
}

// send dials per message. gomail has no context support, so a canceled ctx
// only stops the wait, not the SMTP exchange.
func (s *SMTPSender) send(ctx context.Context, to, subject, html, text string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	errCh := make(chan error, 1)
	go func() { errCh <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", logging.SanitizeEmail(to), err)
		}
		logging.Ctx(ctx).Debug().Str("to", logging.SanitizeEmail(to)).Str("subject", subject).Msg("Email sent")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetURL builds the frontend link that carries a reset token.
func ResetURL(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/reset-password/" + url.PathEscape(token)
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

// DisabledSender rejects every message with ErrEmailDisabled.
type DisabledSender struct{}

func (DisabledSender) SendVerificationEmail(context.Context, string, string, string, time.Duration) error {
	return ErrEmailDisabled
}

func (DisabledSender) SendPasswordResetEmail(context.Context, string, string, string, time.Duration) error {
	return ErrEmailDisabled
}

// Message is one email captured by MemorySender.
type Message struct {
	Kind     string // "verification" or "password_reset"
	To       string
	Username string
	// Secret is the code or reset token.
	Secret    string
	ExpiresIn time.Duration
}

// MemorySender records messages instead of sending them. Set Err to make
// every send fail.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// NewMemorySender creates an empty MemorySender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (m *MemorySender) SendVerificationEmail(_ context.Context, to, username, code string, expiresIn time.Duration) error {
	return m.add(Message{Kind: "verification", To: to, Username: username, Secret: code, ExpiresIn: expiresIn})
}

func (m *MemorySender) SendPasswordResetEmail(_ context.Context, to, username, token string, expiresIn time.Duration) error {
	return m.add(Message{Kind: "password_reset", To: to, Username: username, Secret: token, ExpiresIn: expiresIn})
}

func (m *MemorySender) add(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// SetErr changes the failure injected into later sends.
func (m *MemorySender) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

// Messages returns a copy of the captured messages.
func (m *MemorySender) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Last returns the most recent message to the given address.
func (m *MemorySender) Last(to string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].To == to {
			return m.messages[i], true
		}
	}
	return Message{}, false
}

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = DisabledSender{}
	_ Sender = (*MemorySender)(nil)
)

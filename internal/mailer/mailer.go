// Package mailer sends transactional e-mail through the Resend API or plain SMTP.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"

	"github.com/diewo77/solodesk/internal/config"
)

// Message is one outgoing e-mail.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks SMTP when enabled, Resend when an API key is set, and a logging sender otherwise.
func New(cfg config.MailConfig) Sender {
	switch {
	case cfg.SMTPEnabled:
		return &SMTP{cfg: cfg}
	case cfg.ResendAPIKey != "":
		return &Resend{cfg: cfg, Endpoint: "https://api.resend.com/emails", Client: http.DefaultClient}
	default:
		return LogSender{}
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Resend posts messages to the Resend HTTP API.
type Resend struct {
	cfg      config.MailConfig
	Endpoint string
	Client   *http.Client
}

// NewResend builds a Resend sender; endpoint is overridable for tests.
func NewResend(cfg config.MailConfig, endpoint string, client *http.Client) *Resend {
	return &Resend{cfg: cfg, Endpoint: endpoint, Client: client}
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	body := resendRequest{
		From:    r.cfg.FromEmail,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.ResendAPIKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

// SMTP delivers through a relay with optional PLAIN auth.
type SMTP struct {
	cfg config.MailConfig
}

func (s *SMTP) Send(_ context.Context, msg Message) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	raw := "From: " + s.cfg.FromEmail + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		msg.HTML

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{msg.To}, []byte(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender only logs; used in development when no provider is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("[mail] to=%s subject=%q (no provider configured, not sent)", msg.To, msg.Subject)
	return nil
}

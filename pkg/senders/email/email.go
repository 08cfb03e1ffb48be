// Package email implements the message sender contract over SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/j7-dev/powerfunnel/pkg/config"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// Sender delivers mail through a configured SMTP relay.
type Sender struct {
	cfg    config.EmailConfig
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

var _ protocol.MessageSender = (*Sender)(nil)

func NewSender(cfg config.EmailConfig, logger *slog.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: logger.With("module", "email_sender"),
	}
}

// SendText delivers a plain-text mail with no subject line.
func (s *Sender) SendText(ctx context.Context, recipientID, text string) error {
	return s.deliver(ctx, recipientID, "", text)
}

// SendTemplate delivers a mail built from a subject/body template map.
func (s *Sender) SendTemplate(ctx context.Context, recipientID string, template map[string]any) error {
	subject, _ := template["subject"].(string)
	body, _ := template["body"].(string)

	return s.deliver(ctx, recipientID, subject, body)
}

func (s *Sender) deliver(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var message strings.Builder
	message.WriteString("From: " + s.cfg.From + "\r\n")
	message.WriteString("To: " + recipient + "\r\n")
	message.WriteString("Subject: " + subject + "\r\n")
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{recipient}, []byte(message.String())); err != nil {
		return fmt.Errorf("smtp delivery to %s failed: %w", recipient, err)
	}

	s.logger.Debug("Email delivered", "recipient", recipient)

	return nil
}

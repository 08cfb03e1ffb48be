// Package sms implements the message sender contract against a generic
// JSON HTTP SMS gateway.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/j7-dev/powerfunnel/pkg/config"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// Sender delivers text messages through an HTTP SMS gateway.
type Sender struct {
	client *resty.Client
	from   string
	logger *slog.Logger
}

var _ protocol.MessageSender = (*Sender)(nil)

func NewSender(cfg config.SMSConfig, logger *slog.Logger) *Sender {
	client := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Sender{
		client: client,
		from:   cfg.From,
		logger: logger.With("module", "sms_sender"),
	}
}

// SendText submits a single text message to the gateway.
func (s *Sender) SendText(ctx context.Context, recipientID, text string) error {
	response, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"to":   recipientID,
			"from": s.from,
			"text": text,
		}).
		Post("")
	if err != nil {
		return fmt.Errorf("SMS gateway request failed: %w", err)
	}

	if response.IsError() {
		return fmt.Errorf("SMS gateway returned status %d: %s", response.StatusCode(), response.String())
	}

	s.logger.Debug("SMS submitted", "recipient", recipientID)

	return nil
}

// SendTemplate flattens a template payload to its body text. SMS has no
// structured message format, so only the body field is delivered.
func (s *Sender) SendTemplate(ctx context.Context, recipientID string, template map[string]any) error {
	body, _ := template["body"].(string)
	if body == "" {
		return fmt.Errorf("SMS template has no body text")
	}

	return s.SendText(ctx, recipientID, body)
}

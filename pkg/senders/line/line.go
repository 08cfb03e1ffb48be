// Package line implements the message sender contract against the
// LINE Messaging API push endpoint.
package line

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/j7-dev/powerfunnel/pkg/config"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const pushPath = "/v2/bot/message/push"

// Sender pushes messages to LINE users.
type Sender struct {
	client *resty.Client
	logger *slog.Logger
}

var _ protocol.MessageSender = (*Sender)(nil)

func NewSender(cfg config.LineConfig, logger *slog.Logger) *Sender {
	client := resty.New().
		SetBaseURL(cfg.APIBase).
		SetAuthToken(cfg.ChannelToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Sender{
		client: client,
		logger: logger.With("module", "line_sender"),
	}
}

// SendText pushes a single text message.
func (s *Sender) SendText(ctx context.Context, recipientID, text string) error {
	return s.push(ctx, recipientID, []map[string]any{
		{"type": "text", "text": text},
	})
}

// SendTemplate pushes a pre-built message object, for example a flex
// or template message.
func (s *Sender) SendTemplate(ctx context.Context, recipientID string, template map[string]any) error {
	return s.push(ctx, recipientID, []map[string]any{template})
}

func (s *Sender) push(ctx context.Context, recipientID string, messages []map[string]any) error {
	response, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"to":       recipientID,
			"messages": messages,
		}).
		Post(pushPath)
	if err != nil {
		return fmt.Errorf("LINE push request failed: %w", err)
	}

	if response.IsError() {
		return fmt.Errorf("LINE push returned status %d: %s", response.StatusCode(), response.String())
	}

	s.logger.Debug("LINE push delivered", "recipient", recipientID)

	return nil
}

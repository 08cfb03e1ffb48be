// Package sms provides the send_sms node definition.
package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "send_sms"

// Definition sends a text message to the resolved phone number.
type Definition struct {
	resolver *params.Resolver
	sender   protocol.MessageSender
	logger   *slog.Logger
}

func NewDefinition(resolver *params.Resolver, sender protocol.MessageSender, logger *slog.Logger) *Definition {
	return &Definition{
		resolver: resolver,
		sender:   sender,
		logger:   logger.With("module", "node_sms"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Send SMS" }
func (d *Definition) Description() string { return "Sends a text message through the SMS gateway" }
func (d *Definition) Icon() string        { return "smartphone" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategorySendMessage }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "Phone number to send to",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message text, supports {{subject.attribute}} placeholders",
			},
		},
		"required": []string{"recipient", "message"},
	}
}

func (d *Definition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	recipient, err := d.resolver.ResolveString(ctx, node, instance, "recipient")
	if err != nil {
		return nil, err
	}

	if recipient == "" {
		return models.FailedResult(node.ID, "no recipient resolved for SMS node"), nil
	}

	message, err := d.resolver.ResolveString(ctx, node, instance, "message")
	if err != nil {
		return nil, err
	}

	message = d.resolver.Render(ctx, message, node, instance)
	if message == "" {
		return models.FailedResult(node.ID, "SMS message rendered empty"), nil
	}

	if err := d.sender.SendText(ctx, recipient, message); err != nil {
		return nil, fmt.Errorf("SMS to %s failed: %w", recipient, err)
	}

	d.logger.Info("SMS sent", "instance_id", instance.ID, "recipient", recipient)

	return models.SuccessResult(node.ID, fmt.Sprintf("SMS sent to %s", recipient)), nil
}

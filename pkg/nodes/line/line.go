// Package line provides the send_line_text node definition.
package line

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "send_line_text"

// Definition pushes a text message to the resolved LINE user.
type Definition struct {
	resolver *params.Resolver
	sender   protocol.MessageSender
	logger   *slog.Logger
}

func NewDefinition(resolver *params.Resolver, sender protocol.MessageSender, logger *slog.Logger) *Definition {
	return &Definition{
		resolver: resolver,
		sender:   sender,
		logger:   logger.With("module", "node_line"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Send LINE Text" }
func (d *Definition) Description() string { return "Pushes a text message to a LINE user" }
func (d *Definition) Icon() string        { return "message-circle" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategorySendMessage }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "LINE user id to push to",
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
		return models.FailedResult(node.ID, "no recipient resolved for LINE node"), nil
	}

	message, err := d.resolver.ResolveString(ctx, node, instance, "message")
	if err != nil {
		return nil, err
	}

	message = d.resolver.Render(ctx, message, node, instance)
	if message == "" {
		return models.FailedResult(node.ID, "LINE message rendered empty"), nil
	}

	if err := d.sender.SendText(ctx, recipient, message); err != nil {
		return nil, fmt.Errorf("LINE push to %s failed: %w", recipient, err)
	}

	d.logger.Info("LINE message sent", "instance_id", instance.ID, "recipient", recipient)

	return models.SuccessResult(node.ID, fmt.Sprintf("LINE message sent to %s", recipient)), nil
}

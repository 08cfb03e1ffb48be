// Package email provides the send_email node definition.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "send_email"

// Definition sends an email to the resolved recipient. Subject and
// content come either from the node's own params or from a stored
// message template referenced by message_template_id; both paths run
// through placeholder rendering against the instance.
type Definition struct {
	resolver  *params.Resolver
	sender    protocol.MessageSender
	templates persistence.MessageTemplateRepository
	logger    *slog.Logger
}

func NewDefinition(
	resolver *params.Resolver,
	sender protocol.MessageSender,
	templates persistence.MessageTemplateRepository,
	logger *slog.Logger,
) *Definition {
	return &Definition{
		resolver:  resolver,
		sender:    sender,
		templates: templates,
		logger:    logger.With("module", "node_email"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Send Email" }
func (d *Definition) Description() string { return "Sends an email to the resolved recipient" }
func (d *Definition) Icon() string        { return "mail" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategorySendMessage }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"type":        "string",
				"description": "Destination email address",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject line, supports {{subject.attribute}} placeholders",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Body text, supports {{subject.attribute}} placeholders",
			},
			"message_template_id": map[string]any{
				"type":        "string",
				"description": "Stored template to use instead of inline subject and content",
			},
		},
		"required": []string{"recipient"},
	}
}

func (d *Definition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	recipient, err := d.resolver.ResolveString(ctx, node, instance, "recipient")
	if err != nil {
		return nil, err
	}

	if recipient == "" {
		return models.FailedResult(node.ID, "no recipient resolved for email node"), nil
	}

	subject, content, err := d.resolveMessage(ctx, node, instance)
	if err != nil {
		return nil, err
	}

	subject = d.resolver.Render(ctx, subject, node, instance)
	content = d.resolver.Render(ctx, content, node, instance)

	err = d.sender.SendTemplate(ctx, recipient, map[string]any{
		"subject": subject,
		"body":    content,
	})
	if err != nil {
		return nil, fmt.Errorf("email send to %s failed: %w", recipient, err)
	}

	d.logger.Info("Email sent", "instance_id", instance.ID, "recipient", recipient)

	return models.SuccessResult(node.ID, fmt.Sprintf("email sent to %s", recipient)), nil
}

func (d *Definition) resolveMessage(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (string, string, error) {
	templateID, err := d.resolver.ResolveString(ctx, node, instance, "message_template_id")
	if err != nil {
		return "", "", err
	}

	if templateID != "" {
		template, err := d.templates.GetByID(ctx, templateID)
		if err != nil {
			return "", "", fmt.Errorf("failed to load message template %s: %w", templateID, err)
		}

		return template.Subject, template.Content, nil
	}

	subject, err := d.resolver.ResolveString(ctx, node, instance, "subject")
	if err != nil {
		return "", "", err
	}

	content, err := d.resolver.ResolveString(ctx, node, instance, "content")
	if err != nil {
		return "", "", err
	}

	return subject, content, nil
}

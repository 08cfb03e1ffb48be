// Package waituntil provides the absolute-timestamp delay node
// definition.
package waituntil

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "wait_until"

// Definition pauses the instance until an absolute point in time. A
// timestamp already in the past completes immediately without touching
// the scheduler.
type Definition struct {
	resolver  *params.Resolver
	continuer protocol.Continuer
	logger    *slog.Logger
}

func NewDefinition(resolver *params.Resolver, continuer protocol.Continuer, logger *slog.Logger) *Definition {
	return &Definition{
		resolver:  resolver,
		continuer: continuer,
		logger:    logger.With("module", "node_wait_until"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Wait Until" }
func (d *Definition) Description() string { return "Pauses the workflow until a point in time" }
func (d *Definition) Icon() string        { return "calendar-clock" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategoryAction }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timestamp": map[string]any{
				"type":        "string",
				"description": "RFC 3339 timestamp to resume at",
			},
		},
		"required": []string{"timestamp"},
	}
}

func (d *Definition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	raw, err := d.resolver.ResolveString(ctx, node, instance, "timestamp")
	if err != nil {
		return nil, err
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return models.FailedResult(node.ID,
			fmt.Sprintf("wait_until node requires an RFC 3339 timestamp, got %q", raw)), nil
	}

	if !at.After(time.Now()) {
		return models.SuccessResult(node.ID, "wait time already passed"), nil
	}

	if err := d.continuer.ContinueLater(ctx, instance.ID, at.UTC()); err != nil {
		return nil, fmt.Errorf("failed to schedule wait_until continuation: %w", err)
	}

	d.logger.Info("Wait until scheduled", "instance_id", instance.ID, "fire_at", at)

	result := models.SuccessResult(node.ID, "waiting")
	result.Deferred = true
	result.Data = map[string]any{"fire_at": at.UTC().Format(time.RFC3339)}

	return result, nil
}

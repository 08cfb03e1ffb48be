// Package wait provides the relative-delay node definition.
package wait

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

const DefinitionID = "wait"

// Definition pauses the instance for a configured number of seconds.
// It schedules its own continuation through the bridge and reports a
// deferred success, so the state machine records the step and leaves
// the next advance to the scheduler.
type Definition struct {
	resolver  *params.Resolver
	continuer protocol.Continuer
	logger    *slog.Logger
}

func NewDefinition(resolver *params.Resolver, continuer protocol.Continuer, logger *slog.Logger) *Definition {
	return &Definition{
		resolver:  resolver,
		continuer: continuer,
		logger:    logger.With("module", "node_wait"),
	}
}

func (d *Definition) ID() string          { return DefinitionID }
func (d *Definition) Name() string        { return "Wait" }
func (d *Definition) Description() string { return "Pauses the workflow for a number of seconds" }
func (d *Definition) Icon() string        { return "clock" }

func (d *Definition) Category() protocol.NodeCategory { return protocol.CategoryAction }

func (d *Definition) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"seconds": map[string]any{
				"type":        "number",
				"minimum":     1,
				"description": "Delay before the next node runs",
			},
		},
		"required": []string{"seconds"},
	}
}

func (d *Definition) Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error) {
	value, err := d.resolver.Resolve(ctx, node, instance, "seconds")
	if err != nil {
		return nil, err
	}

	seconds, err := toSeconds(value)
	if err != nil {
		return models.FailedResult(node.ID, err.Error()), nil
	}

	at := time.Now().Add(time.Duration(seconds) * time.Second).UTC()

	if err := d.continuer.ContinueLater(ctx, instance.ID, at); err != nil {
		return nil, fmt.Errorf("failed to schedule wait continuation: %w", err)
	}

	d.logger.Info("Wait scheduled", "instance_id", instance.ID, "seconds", seconds, "fire_at", at)

	result := models.SuccessResult(node.ID, "waiting")
	result.Deferred = true
	result.Data = map[string]any{"fire_at": at.Format(time.RFC3339)}

	return result, nil
}

func toSeconds(value any) (int64, error) {
	switch typed := value.(type) {
	case float64:
		if typed >= 1 {
			return int64(typed), nil
		}
	case int:
		if typed >= 1 {
			return int64(typed), nil
		}
	case int64:
		if typed >= 1 {
			return typed, nil
		}
	case string:
		parsed, err := strconv.ParseInt(typed, 10, 64)
		if err == nil && parsed >= 1 {
			return parsed, nil
		}
	}

	return 0, fmt.Errorf("wait node requires a positive seconds value, got %v", value)
}

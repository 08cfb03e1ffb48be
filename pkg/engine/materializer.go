package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
)

// Materializer turns trigger firings into running workflow instances.
// Each published rule bound to the trigger point gets its own instance
// with a frozen node list and a captured context; rules materialize in
// isolation, so one malformed rule never blocks its siblings.
type Materializer struct {
	persistence  persistence.Persistence
	callables    *params.CallableRegistry
	stateMachine *StateMachine
	eventBus     eventbus.EventBus
	logger       *slog.Logger
}

func NewMaterializer(
	persistence persistence.Persistence,
	callables *params.CallableRegistry,
	stateMachine *StateMachine,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Materializer {
	return &Materializer{
		persistence:  persistence,
		callables:    callables,
		stateMachine: stateMachine,
		eventBus:     eventBus,
		logger:       logger.With("module", "materializer"),
	}
}

// OnTrigger materializes every published rule bound to the trigger
// point and synchronously advances each new instance once, so the
// first step runs within the triggering call rather than a queued
// background pass.
func (m *Materializer) OnTrigger(ctx context.Context, triggerPoint string, triggerContext map[string]any) error {
	logger := m.logger.With("trigger_point", triggerPoint)

	rules, err := m.persistence.Rules().PublishedByTriggerPoint(ctx, triggerPoint)
	if err != nil {
		return fmt.Errorf("failed to query rules for %s: %w", triggerPoint, err)
	}

	if len(rules) == 0 {
		logger.Debug("No published rules bound to trigger point")

		return nil
	}

	for _, rule := range rules {
		if err := m.materialize(ctx, rule, triggerContext); err != nil {
			logger.Error("Rule materialization failed, continuing with siblings",
				"rule_id", rule.ID, "error", err)
		}
	}

	return nil
}

func (m *Materializer) materialize(ctx context.Context, rule *models.WorkflowRule, triggerContext map[string]any) error {
	captured, err := m.captureContext(ctx, rule, triggerContext)
	if err != nil {
		return fmt.Errorf("failed to capture context for rule %s: %w", rule.ID, err)
	}

	instance := models.NewInstance(rule, captured)

	if err := m.persistence.Instances().Create(ctx, instance); err != nil {
		return fmt.Errorf("failed to persist instance for rule %s: %w", rule.ID, err)
	}

	m.logger.Info("Instance materialized",
		"instance_id", instance.ID, "rule_id", rule.ID, "nodes", len(instance.Nodes))

	event := events.InstanceCreated{
		BaseEvent: events.BaseEvent{
			ID:        m.eventBus.GenerateID(),
			Type:      events.InstanceCreatedEvent,
			Timestamp: time.Now().UTC(),
		},
		InstanceID:   instance.ID,
		RuleID:       rule.ID,
		TriggerPoint: rule.TriggerPoint,
	}

	if err := m.eventBus.Publish(ctx, instance.ID, event); err != nil {
		m.logger.Error("Failed to publish instance created", "instance_id", instance.ID, "error", err)
	}

	return m.stateMachine.TryAdvance(ctx, instance.ID)
}

// captureContext builds the instance context for one firing. When the
// rule configures a context callable it is re-evaluated fresh here,
// and the trigger's own context entries override the callable's on
// key collisions.
func (m *Materializer) captureContext(ctx context.Context, rule *models.WorkflowRule, triggerContext map[string]any) (map[string]any, error) {
	captured := make(map[string]any, len(triggerContext))

	if rule.ContextCallable != nil {
		value, err := m.callables.Evaluate(ctx, rule.ContextCallable.Name, rule.ContextCallable.Args)
		if err != nil {
			return nil, err
		}

		mapping, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("context callable %q returned %T, want a mapping", rule.ContextCallable.Name, value)
		}

		for key, item := range mapping {
			captured[key] = item
		}
	}

	for key, item := range triggerContext {
		captured[key] = item
	}

	return captured, nil
}

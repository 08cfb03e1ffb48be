package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// EventBridge implements the continuation contract on top of the event
// bus and the delay scheduler. Immediate continuations become advance
// events consumed by the worker; deferred ones become persisted
// schedules the poller converts into the same advance events when due.
// Both paths deliver at least once.
type EventBridge struct {
	eventBus  eventbus.EventBus
	scheduler protocol.DelayScheduler
	logger    *slog.Logger
}

// compile-time contract check
var _ protocol.Continuer = (*EventBridge)(nil)

func NewEventBridge(eventBus eventbus.EventBus, scheduler protocol.DelayScheduler, logger *slog.Logger) *EventBridge {
	return &EventBridge{
		eventBus:  eventBus,
		scheduler: scheduler,
		logger:    logger.With("module", "bridge"),
	}
}

// ContinueNow requests an immediate advance of the instance.
func (b *EventBridge) ContinueNow(ctx context.Context, instanceID string) error {
	event := events.InstanceAdvance{
		BaseEvent: events.BaseEvent{
			ID:        b.eventBus.GenerateID(),
			Type:      events.InstanceAdvanceEvent,
			Timestamp: time.Now().UTC(),
		},
		InstanceID: instanceID,
		Reason:     events.AdvanceReasonStepCompleted,
	}

	if err := b.eventBus.Publish(ctx, instanceID, event); err != nil {
		return fmt.Errorf("failed to publish advance for %s: %w", instanceID, err)
	}

	return nil
}

// ContinueLater registers a delayed advance no earlier than at.
func (b *EventBridge) ContinueLater(ctx context.Context, instanceID string, at time.Time) error {
	scheduleID, err := b.scheduler.Schedule(ctx, at, instanceID)
	if err != nil {
		return fmt.Errorf("failed to schedule continuation for %s: %w", instanceID, err)
	}

	b.logger.Info("Continuation scheduled",
		"instance_id", instanceID, "schedule_id", scheduleID, "fire_at", at)

	return nil
}

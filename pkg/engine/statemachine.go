package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/eventbus"
	"github.com/j7-dev/powerfunnel/pkg/events"
	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
)

// StateMachine advances workflow instances one step at a time. Every
// advance is a short synchronous unit of work: load, execute the
// current node, record the result, and either request the next advance
// through the continuer or move the instance to a terminal status.
//
// Redundant advance deliveries are absorbed twice over: a terminal or
// already-finished instance hits the status guard, and a duplicate
// write for an already-recorded step hits the conditional result
// append.
type StateMachine struct {
	persistence persistence.Persistence
	executor    *Executor
	continuer   protocol.Continuer
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

func NewStateMachine(
	persistence persistence.Persistence,
	executor *Executor,
	continuer protocol.Continuer,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *StateMachine {
	return &StateMachine{
		persistence: persistence,
		executor:    executor,
		continuer:   continuer,
		eventBus:    eventBus,
		logger:      logger.With("module", "state_machine"),
	}
}

// TryAdvance executes the instance's current step. Domain outcomes
// (skips, node failures, duplicate deliveries) never surface as
// errors; only operational faults such as an unreachable record store
// do.
func (sm *StateMachine) TryAdvance(ctx context.Context, instanceID string) error {
	logger := sm.logger.With("instance_id", instanceID)

	instance, err := sm.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to load instance %s: %w", instanceID, err)
	}

	if instance.Status != models.InstanceStatusRunning {
		logger.Debug("Advance ignored, instance not running", "status", instance.Status)

		return nil
	}

	if instance.Finished() {
		return sm.transition(ctx, instance, models.InstanceStatusCompleted)
	}

	step := instance.CurrentStep()
	node := instance.CurrentNode()
	result := sm.executor.ExecuteNode(ctx, node, instance)

	err = sm.persistence.Instances().AppendResult(ctx, instance.ID, step, result)
	if err != nil {
		if persistence.IsResultExists(err) {
			logger.Debug("Redundant advance absorbed, step already recorded", "step", step)

			return nil
		}

		return fmt.Errorf("failed to record result for step %d: %w", step, err)
	}

	if !result.Consumed() {
		logger.Warn("Node failed, instance terminated",
			"step", step, "node_id", node.ID, "message", result.Message)

		return sm.transition(ctx, instance, models.InstanceStatusFailed)
	}

	if result.Deferred {
		logger.Info("Step recorded, next advance deferred", "step", step)

		return nil
	}

	if err := sm.continuer.ContinueNow(ctx, instance.ID); err != nil {
		return fmt.Errorf("failed to request continuation for %s: %w", instance.ID, err)
	}

	return nil
}

// transition moves the instance to a terminal status and emits the
// status-changed notification.
func (sm *StateMachine) transition(ctx context.Context, instance *models.WorkflowInstance, status models.InstanceStatus) error {
	err := sm.persistence.Instances().UpdateStatus(ctx, instance.ID, status)
	if err != nil {
		return fmt.Errorf("failed to move instance %s to %s: %w", instance.ID, status, err)
	}

	sm.logger.Info("Instance reached terminal status",
		"instance_id", instance.ID, "status", status, "steps", len(instance.Results))

	event := events.InstanceStatusChanged{
		BaseEvent: events.BaseEvent{
			ID:        sm.eventBus.GenerateID(),
			Type:      events.InstanceStatusChangedEvent,
			Timestamp: time.Now().UTC(),
		},
		InstanceID: instance.ID,
		RuleID:     instance.RuleID,
		OldStatus:  models.InstanceStatusRunning,
		NewStatus:  status,
		StepIndex:  instance.CurrentStep(),
	}

	if err := sm.eventBus.Publish(ctx, instance.ID, event); err != nil {
		sm.logger.Error("Failed to publish status change", "instance_id", instance.ID, "error", err)
	}

	return nil
}

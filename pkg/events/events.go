// Package events defines the engine's event types and topics.
package events

import (
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

type EventType string

// Topic carries every engine event.
const Topic = "powerfunnel.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// TriggerFiredEvent is published by the host (or the trigger CLI)
	// when an application event occurs; the materializer consumes it.
	TriggerFiredEvent EventType = "trigger.fired"

	// InstanceCreatedEvent is published after a rule is materialized
	// into a running instance.
	InstanceCreatedEvent EventType = "instance.created"

	// InstanceAdvanceEvent requests one advance of an instance. Both
	// immediate continuations and due delay schedules land here.
	// Delivery is at-least-once.
	InstanceAdvanceEvent EventType = "instance.advance"

	// InstanceStatusChangedEvent is the outbound notification emitted
	// when an instance leaves the running state.
	InstanceStatusChangedEvent EventType = "instance.status.changed"
)

// Advance reasons, carried for diagnostics only.
const (
	AdvanceReasonCreated       = "created"
	AdvanceReasonStepCompleted = "step_completed"
	AdvanceReasonDelayDue      = "delay_due"
	AdvanceReasonManual        = "manual"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TriggerFired struct {
	BaseEvent

	TriggerPoint string         `json:"trigger_point"`
	Context      map[string]any `json:"context,omitempty"`
}

func (e TriggerFired) GetType() EventType {
	return TriggerFiredEvent
}

type InstanceCreated struct {
	BaseEvent

	InstanceID   string `json:"instance_id"`
	RuleID       string `json:"rule_id"`
	TriggerPoint string `json:"trigger_point"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

type InstanceAdvance struct {
	BaseEvent

	InstanceID string `json:"instance_id"`
	Reason     string `json:"reason,omitempty"`
}

func (e InstanceAdvance) GetType() EventType {
	return InstanceAdvanceEvent
}

type InstanceStatusChanged struct {
	BaseEvent

	InstanceID string                `json:"instance_id"`
	RuleID     string                `json:"rule_id"`
	OldStatus  models.InstanceStatus `json:"old_status"`
	NewStatus  models.InstanceStatus `json:"new_status"`
	StepIndex  int                   `json:"step_index"`
}

func (e InstanceStatusChanged) GetType() EventType {
	return InstanceStatusChangedEvent
}

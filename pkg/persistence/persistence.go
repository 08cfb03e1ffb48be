// Package persistence provides the record store abstraction the engine
// consumes for rules, instances, delay schedules and message
// templates.
package persistence

import (
	"context"
	"time"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

// Persistence bundles the repositories one record store backend
// provides.
type Persistence interface {
	Rules() RuleRepository
	Instances() InstanceRepository
	Schedules() ScheduleRepository
	Templates() MessageTemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores workflow rule templates. Rules are read-only
// to the engine except at materialization time.
type RuleRepository interface {
	Save(ctx context.Context, rule *models.WorkflowRule) error
	GetByID(ctx context.Context, id string) (*models.WorkflowRule, error)
	List(ctx context.Context) ([]*models.WorkflowRule, error)

	// PublishedByTriggerPoint returns every rule with publish status
	// bound to the given trigger point.
	PublishedByTriggerPoint(ctx context.Context, triggerPoint string) ([]*models.WorkflowRule, error)

	Delete(ctx context.Context, id string) error
}

// InstanceRepository stores workflow instances. AppendResult is the
// only write path for results and must be conditional: a write for an
// index that already holds a result fails with ErrResultExists, which
// makes redundant continuation deliveries safe.
type InstanceRepository interface {
	Create(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	List(ctx context.Context) ([]*models.WorkflowInstance, error)

	// AppendResult records the result for the node at index. It fails
	// with ErrResultExists when index is already populated and with
	// ErrResultIndexGap when index would leave a hole.
	AppendResult(ctx context.Context, instanceID string, index int, result *models.Result) error

	// UpdateStatus transitions the instance status. Terminal statuses
	// are sticky: a transition out of completed or failed fails with
	// ErrTerminalStatus.
	UpdateStatus(ctx context.Context, instanceID string, status models.InstanceStatus) error
}

// ScheduleRepository stores pending delayed continuations for the
// delay scheduler.
type ScheduleRepository interface {
	Save(ctx context.Context, schedule *models.Schedule) error
	Due(ctx context.Context, now time.Time) ([]*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}

// MessageTemplateRepository stores reusable message templates
// referenced by send-message nodes.
type MessageTemplateRepository interface {
	Save(ctx context.Context, template *models.MessageTemplate) error
	GetByID(ctx context.Context, id string) (*models.MessageTemplate, error)
}

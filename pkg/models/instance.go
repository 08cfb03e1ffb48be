package models

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus represents the lifecycle state of a workflow instance.
// Completed and failed are terminal; no transition leaves them.
type InstanceStatus string

const (
	InstanceStatusRunning   InstanceStatus = "running"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusFailed    InstanceStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusFailed
}

// WorkflowInstance is one concrete, stateful execution of a rule,
// created per trigger firing. It owns a frozen copy of the rule's node
// list and an append-only result list; the current step index is
// derived from the result count. The context is captured at trigger
// time and read-only during execution.
type WorkflowInstance struct {
	ID           string          `json:"id"`
	Status       InstanceStatus  `json:"status"`
	RuleID       string          `json:"rule_id"`
	TriggerPoint string          `json:"trigger_point"`
	Nodes        []*Node         `json:"nodes"`
	Context      map[string]any  `json:"context,omitempty"`
	Results      []*Result       `json:"results"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewInstance materializes a running instance from a rule with the
// given captured context. The node list is deep-copied so later rule
// edits only affect future instances.
func NewInstance(rule *WorkflowRule, context map[string]any) *WorkflowInstance {
	now := time.Now().UTC()

	return &WorkflowInstance{
		ID:           "wfi-" + uuid.New().String()[:8],
		Status:       InstanceStatusRunning,
		RuleID:       rule.ID,
		TriggerPoint: rule.TriggerPoint,
		Nodes:        rule.CloneNodes(),
		Context:      context,
		Results:      []*Result{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CurrentStep is the index of the next node to execute, derived from
// the count of recorded results.
func (i *WorkflowInstance) CurrentStep() int {
	return len(i.Results)
}

// Finished reports whether every node has a recorded result.
func (i *WorkflowInstance) Finished() bool {
	return len(i.Results) == len(i.Nodes)
}

// CurrentNode returns the node at the current step, or nil when the
// instance has finished its node list.
func (i *WorkflowInstance) CurrentNode() *Node {
	step := i.CurrentStep()
	if step >= len(i.Nodes) {
		return nil
	}

	return i.Nodes[step]
}

// ContextValue looks up a key in the captured context.
func (i *WorkflowInstance) ContextValue(key string) (any, bool) {
	value, ok := i.Context[key]

	return value, ok
}

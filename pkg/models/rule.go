// Package models defines the core domain models for the workflow engine.
package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// RuleStatus represents the lifecycle state of a workflow rule.
type RuleStatus string

const (
	RuleStatusDraft   RuleStatus = "draft"   // Editable, never materialized
	RuleStatusPublish RuleStatus = "publish" // Active, materialized on trigger firings
	RuleStatusTrash   RuleStatus = "trash"   // Removed, kept for recovery
)

var validate = validator.New()

// WorkflowRule is an authored template binding a trigger point to an
// ordered node list. Rules are read-only to the engine except at
// materialization time, when the node list is deep-copied into a new
// instance.
type WorkflowRule struct {
	ID           string     `json:"id"            validate:"required"`
	Name         string     `json:"name"          validate:"required,min=3"`
	Status       RuleStatus `json:"status"        validate:"required,oneof=draft publish trash"`
	TriggerPoint string     `json:"trigger_point" validate:"required"`
	Nodes        []*Node    `json:"nodes"`

	// ContextCallable, when set, is evaluated fresh at every trigger
	// firing; its result map seeds the instance context and the
	// trigger's own entries override it on key collisions.
	ContextCallable *CallableSpec `json:"context_callable,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the rule's own fields and every node it carries.
func (r *WorkflowRule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid workflow rule %s: %w", r.ID, err)
	}

	for i, node := range r.Nodes {
		if err := node.Validate(); err != nil {
			return fmt.Errorf("invalid node at position %d in rule %s: %w", i, r.ID, err)
		}
	}

	return nil
}

// CloneNodes returns a deep copy of the rule's node list, in stored
// order. Instances own their copies; later edits to the rule never
// affect instances already spawned from it.
func (r *WorkflowRule) CloneNodes() []*Node {
	nodes := make([]*Node, 0, len(r.Nodes))
	for _, node := range r.Nodes {
		nodes = append(nodes, node.Clone())
	}

	return nodes
}

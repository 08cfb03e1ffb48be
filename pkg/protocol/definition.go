// Package protocol defines the interfaces and contracts between the
// engine and its pluggable collaborators.
package protocol

import (
	"context"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

// NodeCategory groups node definitions for the editor.
type NodeCategory string

const (
	CategorySendMessage NodeCategory = "send_message"
	CategoryAction      NodeCategory = "action"
)

// NodeDefinition is a registered, reusable node behavior. Definitions
// are registered once at process start and never mutated; lookups are
// safe for concurrent reads.
//
// Execute runs the behavior with the node's saved parameters against
// the instance. It returns a Result for domain-level outcomes (200 on
// success, non-200 when the behavior itself detected a failure) and an
// error only for faults; the node executor converts faults into a 500
// result, so no fault ever escapes past that boundary.
type NodeDefinition interface {
	ID() string
	Name() string
	Description() string
	Icon() string
	Category() NodeCategory

	// Schema returns the JSON schema describing the definition's form
	// fields, used by the editor and to validate saved node params.
	Schema() map[string]any

	Execute(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error)
}

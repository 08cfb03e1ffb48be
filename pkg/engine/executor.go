// Package engine implements workflow execution: materializing rules
// into instances when triggers fire, executing one node per advance,
// and driving each instance's state machine to a terminal status.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/j7-dev/powerfunnel/pkg/models"
	"github.com/j7-dev/powerfunnel/pkg/registry"
)

// Executor runs a single node against an instance. It never returns an
// error: every fault inside a node behavior is converted to a failed
// result at this boundary.
type Executor struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewExecutor(reg *registry.Registry, logger *slog.Logger) *Executor {
	return &Executor{
		registry: reg,
		logger:   logger.With("module", "executor"),
	}
}

// ExecuteNode evaluates the node's match condition and, when it holds,
// invokes the registered definition behavior. A false condition
// produces a skipped result without touching the definition. A
// malformed condition or a dangling definition reference is
// configuration corruption and produces a failed result.
func (e *Executor) ExecuteNode(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) *models.Result {
	logger := e.logger.With(
		"instance_id", instance.ID,
		"node_id", node.ID,
		"definition_id", node.DefinitionID,
	)

	matched, err := node.Match.Evaluate(instance)
	if err != nil {
		logger.Error("Match condition evaluation failed", "error", err)

		return models.FailedResult(node.ID, fmt.Sprintf("match condition: %s", err))
	}

	if !matched {
		logger.Info("Node skipped, condition not met")

		return models.SkippedResult(node.ID)
	}

	definition, err := e.registry.Get(node.DefinitionID)
	if err != nil {
		logger.Error("Node references unregistered definition")

		return models.FailedResult(node.ID, fmt.Sprintf("node definition %q not registered", node.DefinitionID))
	}

	result := e.invoke(ctx, definition.Execute, node, instance)

	logger.Info("Node executed", "code", result.Code, "message", result.Message)

	return result
}

type executeFunc func(ctx context.Context, node *models.Node, instance *models.WorkflowInstance) (*models.Result, error)

// invoke calls the behavior with panic recovery so no fault can escape
// past the executor.
func (e *Executor) invoke(ctx context.Context, execute executeFunc, node *models.Node, instance *models.WorkflowInstance) (result *models.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Node behavior panicked", "node_id", node.ID, "panic", r)
			result = models.FailedResult(node.ID, fmt.Sprintf("panic in node behavior: %v", r))
		}
	}()

	result, err := execute(ctx, node, instance)
	if err != nil {
		return models.FailedResult(node.ID, err.Error())
	}

	if result == nil {
		return models.FailedResult(node.ID, "node behavior returned no result")
	}

	result.NodeID = node.ID

	return result
}

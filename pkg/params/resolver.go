package params

import (
	"context"
	"fmt"

	"github.com/j7-dev/powerfunnel/pkg/models"
)

// Resolver materializes node parameter values against an instance.
type Resolver struct {
	callables *CallableRegistry
}

func NewResolver(callables *CallableRegistry) *Resolver {
	return &Resolver{callables: callables}
}

// Resolve looks up key in the node's saved params and materializes it.
// An absent key resolves to nil. A context reference reads the same
// key from the instance context and resolves to nil when the context
// lacks it too. A callable spec evaluates its registered computation.
// Anything else is returned as the saved literal.
func (r *Resolver) Resolve(ctx context.Context, node *models.Node, instance *models.WorkflowInstance, key string) (any, error) {
	value, ok := node.Params[key]
	if !ok {
		return nil, nil
	}

	switch value.Kind() {
	case models.ParamContextRef:
		contextValue, _ := instance.ContextValue(key)

		return contextValue, nil
	case models.ParamComputed:
		spec := value.Callable()

		computed, err := r.callables.Evaluate(ctx, spec.Name, spec.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve param %q on node %s: %w", key, node.ID, err)
		}

		return computed, nil
	default:
		return value.LiteralValue(), nil
	}
}

// ResolveString resolves key and coerces the value to a string. Nil
// resolves to the empty string; non-string scalars use their default
// formatting.
func (r *Resolver) ResolveString(ctx context.Context, node *models.Node, instance *models.WorkflowInstance, key string) (string, error) {
	value, err := r.Resolve(ctx, node, instance, key)
	if err != nil {
		return "", err
	}

	return stringify(value), nil
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

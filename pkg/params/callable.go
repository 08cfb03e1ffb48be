// Package params resolves saved node parameters against a live
// workflow instance: literals pass through, the "context" sentinel
// reads the instance context, and callable specs evaluate registered
// computations at execution time.
package params

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCallableNotFound is reported when a callable spec names a
// computation nothing registered.
var ErrCallableNotFound = errors.New("callable not registered")

// CallableFunc computes a parameter value at execution time from the
// spec's saved arguments.
type CallableFunc func(ctx context.Context, args map[string]any) (any, error)

// CallableRegistry maps callable names to their evaluators. Like the
// node definition registry, it is populated at startup and read-only
// afterward.
type CallableRegistry struct {
	mu        sync.RWMutex
	callables map[string]CallableFunc
}

func NewCallableRegistry() *CallableRegistry {
	return &CallableRegistry{
		callables: make(map[string]CallableFunc),
	}
}

// Register adds or overwrites an evaluator by name.
func (r *CallableRegistry) Register(name string, fn CallableFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callables[name] = fn
}

// Evaluate runs the named computation.
func (r *CallableRegistry) Evaluate(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.callables[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrCallableNotFound)
	}

	value, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("callable %q failed: %w", name, err)
	}

	return value, nil
}

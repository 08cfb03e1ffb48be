package models

import (
	"fmt"
	"reflect"
)

// Match condition kinds. The set is closed: conditions are data
// interpreted by Evaluate, not references to arbitrary functions.
const (
	MatchAlwaysTrue        = "always_true"
	MatchAlwaysFalse       = "always_false"
	MatchContextKeyExists  = "context_key_exists"
	MatchContextFieldEqual = "context_field_equals"
)

// MatchCondition decides whether a node runs when its step comes up.
// Kind selects one of the closed condition variants; Args are passed to
// the variant in order. A zero condition evaluates to true.
type MatchCondition struct {
	Kind string `json:"kind,omitempty"`
	Args []any  `json:"args,omitempty"`
}

// Validate rejects unknown kinds and malformed argument lists. An
// unknown kind on a stored node is configuration corruption and must
// fail the step rather than silently pass (or skip) it.
func (c MatchCondition) Validate() error {
	switch c.Kind {
	case "", MatchAlwaysTrue, MatchAlwaysFalse:
		return nil
	case MatchContextKeyExists:
		if len(c.Args) != 1 {
			return fmt.Errorf("%s takes exactly one argument, got %d", c.Kind, len(c.Args))
		}

		return nil
	case MatchContextFieldEqual:
		if len(c.Args) != 2 {
			return fmt.Errorf("%s takes exactly two arguments, got %d", c.Kind, len(c.Args))
		}

		return nil
	default:
		return fmt.Errorf("unknown match condition kind %q", c.Kind)
	}
}

// Evaluate interprets the condition against the instance context.
func (c MatchCondition) Evaluate(instance *WorkflowInstance) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	switch c.Kind {
	case "", MatchAlwaysTrue:
		return true, nil
	case MatchAlwaysFalse:
		return false, nil
	case MatchContextKeyExists:
		key, ok := c.Args[0].(string)
		if !ok {
			return false, fmt.Errorf("%s argument must be a string, got %T", c.Kind, c.Args[0])
		}

		_, exists := instance.ContextValue(key)

		return exists, nil
	case MatchContextFieldEqual:
		key, ok := c.Args[0].(string)
		if !ok {
			return false, fmt.Errorf("%s first argument must be a string, got %T", c.Kind, c.Args[0])
		}

		value, exists := instance.ContextValue(key)
		if !exists {
			return false, nil
		}

		return reflect.DeepEqual(value, c.Args[1]), nil
	default:
		return false, fmt.Errorf("unknown match condition kind %q", c.Kind)
	}
}

// Clone returns a deep copy of the condition.
func (c MatchCondition) Clone() MatchCondition {
	clone := MatchCondition{Kind: c.Kind}
	if c.Args != nil {
		clone.Args = make([]any, len(c.Args))
		for i, arg := range c.Args {
			clone.Args[i] = deepCopyValue(arg)
		}
	}

	return clone
}

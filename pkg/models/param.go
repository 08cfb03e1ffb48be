package models

import (
	"encoding/json"
	"fmt"
)

// ContextSentinel is the reserved literal an author saves on a node
// parameter to opt that field into inheriting its value from the
// instance context instead of hard-coding it.
const ContextSentinel = "context"

// callableKey marks the JSON encoding of a deferred computation.
const callableKey = "$callable"

// ParamKind discriminates the three resolution behaviors a saved
// parameter can have.
type ParamKind int

const (
	// ParamLiteral resolves to the saved value as-is.
	ParamLiteral ParamKind = iota
	// ParamContextRef resolves by looking the parameter key up in the
	// instance context.
	ParamContextRef
	// ParamComputed resolves by evaluating a callable spec at
	// execution time.
	ParamComputed
)

// CallableSpec describes a deferred computation by name plus arguments.
// Specs are interpreted against a closed set of registered evaluators;
// there is no arbitrary function dispatch.
type CallableSpec struct {
	Name string         `json:"name" validate:"required"`
	Args map[string]any `json:"args,omitempty"`
}

// Clone returns a deep copy of the spec.
func (s *CallableSpec) Clone() *CallableSpec {
	if s == nil {
		return nil
	}

	clone := &CallableSpec{Name: s.Name}
	if s.Args != nil {
		clone.Args = deepCopyMap(s.Args)
	}

	return clone
}

// ParamValue is a saved node parameter: a literal value, a reference to
// the instance context, or a deferred computation. The JSON shape is
// what rule authors store: the string "context" for a context
// reference, an object {"$callable": {...}} for a computation, and any
// other JSON value for a literal.
type ParamValue struct {
	kind     ParamKind
	literal  any
	callable *CallableSpec
}

// Literal builds a literal parameter value.
func Literal(value any) ParamValue {
	return ParamValue{kind: ParamLiteral, literal: value}
}

// ContextRef builds a context-inheriting parameter value.
func ContextRef() ParamValue {
	return ParamValue{kind: ParamContextRef}
}

// Computed builds a deferred-computation parameter value.
func Computed(spec *CallableSpec) ParamValue {
	return ParamValue{kind: ParamComputed, callable: spec}
}

// Kind reports which resolution behavior the value carries.
func (v ParamValue) Kind() ParamKind {
	return v.kind
}

// LiteralValue returns the saved literal. Only meaningful for
// ParamLiteral values.
func (v ParamValue) LiteralValue() any {
	return v.literal
}

// Callable returns the saved computation spec. Only meaningful for
// ParamComputed values.
func (v ParamValue) Callable() *CallableSpec {
	return v.callable
}

// Clone returns a deep copy of the value.
func (v ParamValue) Clone() ParamValue {
	return ParamValue{
		kind:     v.kind,
		literal:  deepCopyValue(v.literal),
		callable: v.callable.Clone(),
	}
}

func (v ParamValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ParamContextRef:
		return json.Marshal(ContextSentinel)
	case ParamComputed:
		return json.Marshal(map[string]any{callableKey: v.callable})
	default:
		return json.Marshal(v.literal)
	}
}

func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch value := raw.(type) {
	case string:
		if value == ContextSentinel {
			*v = ContextRef()

			return nil
		}
	case map[string]any:
		if spec, ok := value[callableKey]; ok {
			if len(value) != 1 {
				return fmt.Errorf("callable parameter must contain only %q", callableKey)
			}

			return v.unmarshalCallable(spec)
		}
	}

	*v = Literal(raw)

	return nil
}

func (v *ParamValue) unmarshalCallable(spec any) error {
	specMap, ok := spec.(map[string]any)
	if !ok {
		return fmt.Errorf("callable spec must be an object, got %T", spec)
	}

	name, _ := specMap["name"].(string)
	if name == "" {
		return fmt.Errorf("callable spec requires a name")
	}

	callable := &CallableSpec{Name: name}
	if args, ok := specMap["args"].(map[string]any); ok {
		callable.Args = args
	}

	*v = Computed(callable)

	return nil
}

// deepCopyValue copies JSON-shaped values (maps, slices, scalars).
func deepCopyValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		copied := make([]any, len(typed))
		for i, item := range typed {
			copied[i] = deepCopyValue(item)
		}

		return copied
	default:
		return typed
	}
}

func deepCopyMap(value map[string]any) map[string]any {
	copied := make(map[string]any, len(value))
	for key, item := range value {
		copied[key] = deepCopyValue(item)
	}

	return copied
}

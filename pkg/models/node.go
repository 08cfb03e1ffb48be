package models

import "fmt"

// DefaultPriority is the authoring-time ordering key a node gets when
// the editor does not set one. It only affects how nodes are sorted
// while a rule is authored; instance execution always follows the
// stored array order.
const DefaultPriority = 10

// Node is one step in a rule, referencing a node definition plus saved
// parameters and a match condition. Nodes are copied verbatim into
// every instance spawned from their rule and never mutated afterwards.
type Node struct {
	ID           string                `json:"id"                 validate:"required"`
	DefinitionID string                `json:"node_definition_id" validate:"required"`
	Priority     int                   `json:"priority"`
	Match        MatchCondition        `json:"match"`
	Params       map[string]ParamValue `json:"params,omitempty"`
}

// Validate checks the node's required fields and its match condition.
func (n *Node) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("invalid node %s: %w", n.ID, err)
	}

	if err := n.Match.Validate(); err != nil {
		return fmt.Errorf("invalid match condition on node %s: %w", n.ID, err)
	}

	return nil
}

// Param returns the saved parameter value for key, unresolved.
func (n *Node) Param(key string) (ParamValue, bool) {
	value, ok := n.Params[key]

	return value, ok
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := &Node{
		ID:           n.ID,
		DefinitionID: n.DefinitionID,
		Priority:     n.Priority,
		Match:        n.Match.Clone(),
	}

	if n.Params != nil {
		clone.Params = make(map[string]ParamValue, len(n.Params))
		for key, value := range n.Params {
			clone.Params[key] = value.Clone()
		}
	}

	return clone
}

// Package persistence provides standardized error types for record
// store operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleNotFound indicates a workflow rule was not found.
	ErrRuleNotFound = errors.New("workflow rule not found")

	// ErrInstanceNotFound indicates a workflow instance was not found.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrResultExists indicates a result is already recorded at the
	// targeted step index. Redundant continuation deliveries surface
	// as this error and are absorbed by the state machine.
	ErrResultExists = errors.New("result already recorded at index")

	// ErrResultIndexGap indicates an append targeted an index beyond
	// the next free slot.
	ErrResultIndexGap = errors.New("result index would leave a gap")

	// ErrTerminalStatus indicates a status transition out of a
	// terminal state was attempted.
	ErrTerminalStatus = errors.New("instance status is terminal")

	// ErrTemplateNotFound indicates a message template was not found.
	ErrTemplateNotFound = errors.New("message template not found")
)

// InstanceError wraps instance-related errors with operation context.
type InstanceError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInstanceError creates an instance error with context.
func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{Op: op, InstanceID: instanceID, Err: err}
}

// IsResultExists checks whether an error indicates the targeted step
// index already holds a result.
func IsResultExists(err error) bool {
	return errors.Is(err, ErrResultExists)
}

// Package services provides the business logic layer between the HTTP
// surface and persistence: rule lifecycle, publishing validation and
// instance inspection.
package services

import (
	"errors"
	"fmt"
)

// Validation errors (400 Bad Request).
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrRuleNameRequired    = errors.New("rule name is required")
	ErrTriggerPointInvalid = errors.New("trigger point must use the pf/trigger/ namespace")
	ErrNodesRequired       = errors.New("rule must have at least one node")
	ErrRuleNil             = errors.New("rule cannot be nil")
)

// Business logic conflicts (409 Conflict).
var (
	ErrCannotModifyPublished = errors.New("cannot modify a published rule, move it to draft first")
	ErrRuleTrashed           = errors.New("rule is in trash")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether the error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrRuleNameRequired) ||
		errors.Is(err, ErrTriggerPointInvalid) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrRuleNil)
}

// IsConflictError reports whether the error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotModifyPublished) ||
		errors.Is(err, ErrRuleTrashed)
}

func newServiceError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Err: err}
}

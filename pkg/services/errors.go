// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid workflow status")
	ErrEmptyOwnerID     = errors.New("owner ID cannot be empty")

	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrInvalidFailurePolicy = errors.New("invalid failure policy")
	ErrTriggerNodeRequired  = errors.New("workflow must have at least one trigger node")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")

	// Node and edge validation errors.
	ErrInvalidNodeKind       = errors.New("invalid node kind")
	ErrInvalidNodeConfig     = errors.New("invalid node config")
	ErrKindImmutable         = errors.New("node kind cannot be changed")
	ErrEdgeEndpointRequired  = errors.New("edge source and target are required")
	ErrCrossWorkflowEdge     = errors.New("edge endpoints must belong to the workflow")
	ErrDuplicateConditionTag = errors.New("condition node already has an edge with this tag")
	ErrInvalidGraph          = errors.New("invalid graph")

	// Business Logic Conflicts (409 Conflict).
	ErrInvalidTransition = errors.New("workflow status transition not allowed")

	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
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

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrInvalidFailurePolicy) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidNodeKind) ||
		errors.Is(err, ErrInvalidNodeConfig) ||
		errors.Is(err, ErrKindImmutable) ||
		errors.Is(err, ErrEdgeEndpointRequired) ||
		errors.Is(err, ErrCrossWorkflowEdge) ||
		errors.Is(err, ErrDuplicateConditionTag) ||
		errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, persistence.ErrInvalidInput)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

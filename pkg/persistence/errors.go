// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrNodeNotFound indicates a node was not found by the given identifier.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound indicates an edge was not found by the given identifier.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrRunNotFound indicates a run was not found by the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunAlreadyFinished indicates a terminal run was asked to transition again.
	ErrRunAlreadyFinished = errors.New("run already finished")

	// ErrStorageFailure wraps failures of the underlying store.
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidInput indicates a request the store refuses to run.
	ErrInvalidInput = errors.New("invalid input")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
	Message    string
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.WorkflowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NodeError wraps node-related errors with additional context.
type NodeError struct {
	Op         string
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in workflow %s: %v", e.Op, e.NodeID, e.WorkflowID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewNodeError(op, workflowID, nodeID string, err error) *NodeError {
	return &NodeError{Op: op, WorkflowID: workflowID, NodeID: nodeID, Err: err}
}

// EdgeError wraps edge-related errors with additional context.
type EdgeError struct {
	Op         string
	WorkflowID string
	EdgeID     string
	Err        error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("%s operation failed for edge %s in workflow %s: %v", e.Op, e.EdgeID, e.WorkflowID, e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}

func (e *EdgeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewEdgeError(op, workflowID, edgeID string, err error) *EdgeError {
	return &EdgeError{Op: op, WorkflowID: workflowID, EdgeID: edgeID, Err: err}
}

// RunError wraps run ledger errors with additional context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// ValidationError reports a rejected query parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError marks err as a failure of the underlying store.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsEdgeNotFound checks if an error indicates an edge was not found.
func IsEdgeNotFound(err error) bool {
	return errors.Is(err, ErrEdgeNotFound)
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}

// IsNotFound checks for any of the not-found errors.
func IsNotFound(err error) bool {
	return IsWorkflowNotFound(err) || IsNodeNotFound(err) || IsEdgeNotFound(err) || IsRunNotFound(err)
}

// IsStorageFailure checks if an error came from the underlying store.
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

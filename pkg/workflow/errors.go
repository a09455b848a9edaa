package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotActive is returned when a run is requested for a workflow that is not ACTIVE.
	ErrWorkflowNotActive = errors.New("workflow is not active")

	errVisitBudgetExceeded = errors.New("node visit budget exceeded")
)

// actionFailedError aborts a run under the all_or_nothing policy.
type actionFailedError struct {
	NodeID string
	Err    error
}

func (e *actionFailedError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.NodeID, e.Err)
}

func (e *actionFailedError) Unwrap() error {
	return e.Err
}

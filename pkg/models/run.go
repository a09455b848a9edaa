package models

import "time"

// RunStatus is the state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// Failure reasons recorded on FAILED runs.
const (
	FailureReasonNoMatchingTrigger = "NoMatchingTrigger"
	FailureReasonTimeout           = "Timeout"
	FailureReasonActionFailed      = "ActionFailed"
	FailureReasonNoActionSucceeded = "NoActionSucceeded"
	FailureReasonCancelled         = "Cancelled"
	FailureReasonInternal          = "InternalError"
)

// WorkflowRun is a single execution attempt of a workflow.
type WorkflowRun struct {
	ID               string        `json:"id"`
	WorkflowID       string        `json:"workflow_id"`
	Status           RunStatus     `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	FailureReason    string        `json:"failure_reason,omitempty"`
	FailureDetail    string        `json:"failure_detail,omitempty"`
	Event            *InboundEvent `json:"event,omitempty"`
	ActionsAttempted int           `json:"actions_attempted"`
	ActionsSucceeded int           `json:"actions_succeeded"`
	ActionsFailed    int           `json:"actions_failed"`
}

// RunOutcome carries the terminal state written to a RUNNING run.
type RunOutcome struct {
	Status           RunStatus
	CompletedAt      time.Time
	FailureReason    string
	FailureDetail    string
	ActionsAttempted int
	ActionsSucceeded int
	ActionsFailed    int
}

// Apply copies the outcome onto the run.
func (o RunOutcome) Apply(run *WorkflowRun) {
	completedAt := o.CompletedAt
	run.Status = o.Status
	run.CompletedAt = &completedAt
	run.FailureReason = o.FailureReason
	run.FailureDetail = o.FailureDetail
	run.ActionsAttempted = o.ActionsAttempted
	run.ActionsSucceeded = o.ActionsSucceeded
	run.ActionsFailed = o.ActionsFailed
}

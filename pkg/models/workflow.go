// Package models defines the core domain models for graph-based workflow automation
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "DRAFT"  // Editable, not executable
	WorkflowStatusActive WorkflowStatus = "ACTIVE" // Executable
	WorkflowStatusPaused WorkflowStatus = "PAUSED" // Temporarily not executable
)

func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusActive, WorkflowStatusPaused:
		return true
	default:
		return false
	}
}

// FailurePolicy decides what a failing action means for the run.
type FailurePolicy string

const (
	// FailurePolicyBestEffort keeps traversing after an action fails.
	FailurePolicyBestEffort FailurePolicy = "best_effort"
	// FailurePolicyAllOrNothing fails the run on the first action failure.
	FailurePolicyAllOrNothing FailurePolicy = "all_or_nothing"
)

func (p FailurePolicy) Valid() bool {
	return p == "" || p == FailurePolicyBestEffort || p == FailurePolicyAllOrNothing
}

// Workflow is a named directed graph of trigger, action and condition nodes.
type Workflow struct {
	ID            string         `json:"id"                       yaml:"id,omitempty"`
	Name          string         `json:"name"                     yaml:"name"                     validate:"required,min=1"`
	Description   string         `json:"description,omitempty"    yaml:"description,omitempty"`
	Status        WorkflowStatus `json:"status"                   yaml:"status,omitempty"`
	TriggersCount int            `json:"triggers_count"           yaml:"-"`
	ActionsCount  int            `json:"actions_count"            yaml:"-"`
	FailurePolicy FailurePolicy  `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty"`
	Owner         string         `json:"owner,omitempty"          yaml:"owner,omitempty"`
	CreatedAt     time.Time      `json:"created_at"               yaml:"-"`
	UpdatedAt     time.Time      `json:"updated_at"               yaml:"-"`
}

// IsExecutable reports whether runs may be started for the workflow.
func (w *Workflow) IsExecutable() bool {
	return w.Status == WorkflowStatusActive
}

// EffectiveFailurePolicy returns the failure policy, defaulting to best effort.
func (w *Workflow) EffectiveFailurePolicy() FailurePolicy {
	if w.FailurePolicy == "" {
		return FailurePolicyBestEffort
	}

	return w.FailurePolicy
}

package models

import "time"

// Edge is a directed connection between two nodes of the same workflow.
// Condition is the branch tag selected by a CONDITION source node.
type Edge struct {
	ID           string    `json:"id"                  yaml:"id"`
	WorkflowID   string    `json:"workflow_id"         yaml:"-"`
	SourceNodeID string    `json:"source_node_id"      yaml:"source"          validate:"required"`
	TargetNodeID string    `json:"target_node_id"      yaml:"target"          validate:"required"`
	Label        string    `json:"label,omitempty"     yaml:"label,omitempty"`
	Condition    string    `json:"condition,omitempty" yaml:"condition,omitempty"`
	CreatedAt    time.Time `json:"created_at"          yaml:"-"`
}

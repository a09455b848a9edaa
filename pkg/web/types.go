package web

import "github.com/autoflowhq/autoflow/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	Name               string               `json:"name"                     validate:"required,min=1"`
	Description        string               `json:"description"`
	Owner              string               `json:"owner"`
	FailurePolicy      models.FailurePolicy `json:"failure_policy,omitempty" validate:"omitempty,oneof=best_effort all_or_nothing"`
	WithDefaultTrigger bool                 `json:"with_default_trigger"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name          *string               `json:"name,omitempty"           validate:"omitempty,min=1"`
	Description   *string               `json:"description,omitempty"`
	Owner         *string               `json:"owner,omitempty"`
	FailurePolicy *models.FailurePolicy `json:"failure_policy,omitempty" validate:"omitempty,oneof=best_effort all_or_nothing"`
}

type ChangeStatusRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE PAUSED"`
}

// CreateNodeRequest represents the request body for creating a new workflow node.
// Without a position the node is placed below the existing ones.
type CreateNodeRequest struct {
	Kind     models.NodeKind   `json:"kind"               validate:"required,oneof=TRIGGER ACTION CONDITION"`
	Label    string            `json:"label"`
	Position *models.Position  `json:"position,omitempty"`
	Config   models.NodeConfig `json:"config"`
}

// UpdateNodeRequest represents the request body for updating an existing workflow node.
// Kind cannot be changed; it may be sent as long as it matches.
type UpdateNodeRequest struct {
	Kind     models.NodeKind   `json:"kind,omitempty"     validate:"omitempty,oneof=TRIGGER ACTION CONDITION"`
	Label    *string           `json:"label,omitempty"`
	Position *models.Position  `json:"position,omitempty"`
	Config   models.NodeConfig `json:"config,omitempty"`
}

type CreateEdgeRequest struct {
	SourceNodeID string `json:"source_node_id"      validate:"required"`
	TargetNodeID string `json:"target_node_id"      validate:"required"`
	Label        string `json:"label,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

type UpdateEdgeRequest struct {
	Label     *string `json:"label,omitempty"`
	Condition *string `json:"condition,omitempty"`
}

// ExecuteResponse acknowledges an accepted run.
type ExecuteResponse struct {
	RunID string `json:"runId"`
}

// WebhookResponse reports how many inbound events a delivery produced.
type WebhookResponse struct {
	Received int `json:"received"`
}

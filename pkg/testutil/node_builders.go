// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates an ACTIVE test Workflow that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:        uuid.New().String(),
		Name:      "Test Workflow",
		Status:    models.WorkflowStatusActive,
		Owner:     "user-1",
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithFailurePolicy sets the workflow failure policy.
func WithFailurePolicy(policy models.FailurePolicy) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.FailurePolicy = policy
	}
}

// CreateTestNode creates a test Node with default values that can be overridden.
// The default is a log ACTION node.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	now := time.Now().UTC()
	node := &models.Node{
		ID:        uuid.New().String(),
		Kind:      models.NodeKindAction,
		Label:     "Test Node",
		Config:    models.NodeConfig{"actionType": "log", "message": "test", "level": "info"},
		Position:  models.Position{X: 100, Y: 200},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as a trigger for the given event type.
func WithTriggerNode(eventType string) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindTrigger
		n.Label = "Trigger"
		n.Config = models.NodeConfig{"triggerType": eventType}
	}
}

// WithActionNode configures the node as an ACTION of the given subtype.
func WithActionNode(actionType string, config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindAction
		n.Config = models.NodeConfig{"actionType": actionType}
		for k, v := range config {
			n.Config[k] = v
		}
	}
}

// WithConditionNode configures the node as a CONDITION of the given subtype.
func WithConditionNode(conditionType string, config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = models.NodeKindCondition
		n.Label = "Condition"
		n.Config = models.NodeConfig{"conditionType": conditionType}
		for k, v := range config {
			n.Config[k] = v
		}
	}
}

// WithWorkflowID sets the owning workflow.
func WithWorkflowID(workflowID string) func(*models.Node) {
	return func(n *models.Node) {
		n.WorkflowID = workflowID
	}
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.Node) {
	return func(n *models.Node) {
		n.Label = label
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// CreateTestEdge connects source to target inside the workflow.
func CreateTestEdge(workflowID, sourceID, targetID string, overrides ...func(*models.Edge)) *models.Edge {
	edge := &models.Edge{
		ID:           uuid.New().String(),
		WorkflowID:   workflowID,
		SourceNodeID: sourceID,
		TargetNodeID: targetID,
		CreatedAt:    time.Now().UTC(),
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithCondition sets the branch tag of an edge.
func WithCondition(tag string) func(*models.Edge) {
	return func(e *models.Edge) {
		e.Condition = tag
	}
}

// WithEdgeCreatedAt pins the edge creation time, which fixes sibling order.
func WithEdgeCreatedAt(at time.Time) func(*models.Edge) {
	return func(e *models.Edge) {
		e.CreatedAt = at
	}
}

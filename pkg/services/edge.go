package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/google/uuid"
)

// CreateEdgeRequest represents the request to connect two nodes.
type CreateEdgeRequest struct {
	SourceNodeID string
	TargetNodeID string
	Label        string
	Condition    string
}

// UpdateEdgeRequest changes the label or branch tag of an edge.
type UpdateEdgeRequest struct {
	Label     *string
	Condition *string
}

// Edge handles edge-related business operations.
type Edge struct {
	persistence persistence.Persistence
}

// NewEdge creates a new edge service.
func NewEdge(persistence persistence.Persistence) *Edge {
	return &Edge{persistence: persistence}
}

// ListEdges returns the edges of a workflow.
func (e *Edge) ListEdges(ctx context.Context, workflowID string) ([]*models.Edge, error) {
	return e.persistence.EdgeRepository().GetEdgesByWorkflow(ctx, workflowID)
}

func (e *Edge) GetEdge(ctx context.Context, workflowID, edgeID string) (*models.Edge, error) {
	return e.persistence.EdgeRepository().GetEdgeByWorkflow(ctx, workflowID, edgeID)
}

// CreateEdge connects two nodes of the same workflow. Outgoing edges of a
// condition node carry distinct branch tags.
func (e *Edge) CreateEdge(ctx context.Context, workflowID string, req *CreateEdgeRequest) (*models.Edge, error) {
	if strings.TrimSpace(req.SourceNodeID) == "" || strings.TrimSpace(req.TargetNodeID) == "" {
		return nil, NewValidationError("CreateEdge", "EDGE_ENDPOINT_REQUIRED", ErrEdgeEndpointRequired.Error(), ErrEdgeEndpointRequired)
	}

	source, err := e.endpoint(ctx, workflowID, req.SourceNodeID)
	if err != nil {
		return nil, err
	}

	if _, err := e.endpoint(ctx, workflowID, req.TargetNodeID); err != nil {
		return nil, err
	}

	edge := &models.Edge{
		ID:           uuid.New().String(),
		WorkflowID:   workflowID,
		SourceNodeID: req.SourceNodeID,
		TargetNodeID: req.TargetNodeID,
		Label:        req.Label,
		Condition:    strings.TrimSpace(req.Condition),
	}

	if err := e.checkConditionTag(ctx, source, edge); err != nil {
		return nil, err
	}

	if err := e.persistence.EdgeRepository().SaveEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to save edge: %w", err)
	}

	return edge, nil
}

// UpdateEdge changes the label or branch tag of an existing edge.
func (e *Edge) UpdateEdge(ctx context.Context, workflowID, edgeID string, req *UpdateEdgeRequest) (*models.Edge, error) {
	edge, err := e.persistence.EdgeRepository().GetEdgeByWorkflow(ctx, workflowID, edgeID)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		edge.Label = *req.Label
	}

	if req.Condition != nil {
		edge.Condition = strings.TrimSpace(*req.Condition)

		source, err := e.endpoint(ctx, workflowID, edge.SourceNodeID)
		if err != nil {
			return nil, err
		}

		if err := e.checkConditionTag(ctx, source, edge); err != nil {
			return nil, err
		}
	}

	if err := e.persistence.EdgeRepository().SaveEdge(ctx, edge); err != nil {
		return nil, fmt.Errorf("failed to update edge: %w", err)
	}

	return edge, nil
}

func (e *Edge) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	return e.persistence.EdgeRepository().DeleteEdge(ctx, workflowID, edgeID)
}

// endpoint loads a node of the workflow. A node that does not exist in the
// workflow is reported as a cross-workflow edge.
func (e *Edge) endpoint(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	node, err := e.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, nodeID)

	switch {
	case err == nil:
		return node, nil
	case persistence.IsNodeNotFound(err):
		return nil, NewValidationError(
			"CreateEdge",
			"CROSS_WORKFLOW_EDGE",
			fmt.Sprintf("node %s does not belong to workflow %s", nodeID, workflowID),
			ErrCrossWorkflowEdge,
		)
	default:
		return nil, err
	}
}

func (e *Edge) checkConditionTag(ctx context.Context, source *models.Node, edge *models.Edge) error {
	if !source.IsCondition() || edge.Condition == "" {
		return nil
	}

	edges, err := e.persistence.EdgeRepository().GetEdgesByWorkflow(ctx, edge.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}

	for _, existing := range edges {
		if existing.ID == edge.ID || existing.SourceNodeID != source.ID {
			continue
		}

		if existing.Condition == edge.Condition {
			return duplicateTagError(source.ID, edge.Condition)
		}
	}

	return nil
}

func duplicateTagError(nodeID, tag string) error {
	return NewValidationError(
		"CreateEdge",
		"DUPLICATE_CONDITION_TAG",
		fmt.Sprintf("condition node %s already has an edge tagged %q", nodeID, tag),
		ErrDuplicateConditionTag,
	)
}

package graph

import (
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/google/uuid"
)

// SplitEdge replaces A→B with A→N and N→B when node N is inserted on the edge.
// The original edge is never retained. Its branch tag and label stay on A→N
// only when A is a CONDITION node, so a Yes/No branch keeps its meaning.
func SplitEdge(edge *models.Edge, insertedNodeID string, sourceKind models.NodeKind) (*models.Edge, *models.Edge) {
	incoming := &models.Edge{
		ID:           uuid.NewString(),
		WorkflowID:   edge.WorkflowID,
		SourceNodeID: edge.SourceNodeID,
		TargetNodeID: insertedNodeID,
		CreatedAt:    edge.CreatedAt,
	}

	if sourceKind == models.NodeKindCondition {
		incoming.Condition = edge.Condition
		incoming.Label = edge.Label
	}

	outgoing := &models.Edge{
		ID:           uuid.NewString(),
		WorkflowID:   edge.WorkflowID,
		SourceNodeID: insertedNodeID,
		TargetNodeID: edge.TargetNodeID,
		CreatedAt:    edge.CreatedAt,
	}

	return incoming, outgoing
}

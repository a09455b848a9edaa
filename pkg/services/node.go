// Package services provides node management functionality for workflows.
package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/google/uuid"
)

const (
	autoPositionX    = 100
	autoPositionStep = 200
)

// CreateNodeRequest represents the request to create a new workflow node.
// A nil or zero Position places the node below the lowest existing node.
type CreateNodeRequest struct {
	Kind     models.NodeKind
	Label    string
	Position *models.Position
	Config   models.NodeConfig
}

// UpdateNodeRequest represents the request to update an existing workflow node.
// Nil fields are left unchanged. Kind may only repeat the current kind.
type UpdateNodeRequest struct {
	Kind     models.NodeKind
	Label    *string
	Position *models.Position
	Config   models.NodeConfig
}

// InsertNodeResult is the outcome of inserting a node on an edge.
type InsertNodeResult struct {
	Node     *models.Node `json:"node"`
	Incoming *models.Edge `json:"incoming"`
	Outgoing *models.Edge `json:"outgoing"`
}

// Node handles node-related business operations.
type Node struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewNode creates a new node service.
func NewNode(persistence persistence.Persistence, registry *registry.Registry) *Node {
	return &Node{
		persistence: persistence,
		registry:    registry,
	}
}

// ListNodes returns the nodes of a workflow.
func (n *Node) ListNodes(ctx context.Context, workflowID string) ([]*models.Node, error) {
	return n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
}

// GetNode retrieves a specific node from the specified workflow.
func (n *Node) GetNode(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	return n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, nodeID)
}

// CreateNode creates a new node in the specified workflow and bumps the
// workflow counters.
func (n *Node) CreateNode(ctx context.Context, workflowID string, req *CreateNodeRequest) (*models.Node, error) {
	nodes, err := n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Kind:       req.Kind,
		Label:      req.Label,
		Config:     req.Config,
	}

	if node.Config == nil {
		node.Config = models.NodeConfig{}
	}

	if req.Position != nil {
		node.Position = *req.Position
	}

	if node.Position.IsZero() {
		node.Position = nextPosition(nodes)
	}

	if err := n.create(ctx, node); err != nil {
		return nil, err
	}

	return node, nil
}

func (n *Node) create(ctx context.Context, node *models.Node) error {
	if !node.Kind.Valid() {
		return NewValidationError("CreateNode", "INVALID_NODE_KIND", fmt.Sprintf("invalid node kind '%s'", node.Kind), ErrInvalidNodeKind)
	}

	if err := validateNodeConfig(n.registry, node); err != nil {
		return err
	}

	if err := n.persistence.NodeRepository().SaveNode(ctx, node); err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}

	triggers, actions := countDelta(node.Kind, 1)
	if err := n.persistence.WorkflowRepository().AdjustCounts(ctx, node.WorkflowID, triggers, actions); err != nil {
		return fmt.Errorf("failed to update workflow counters: %w", err)
	}

	return nil
}

// UpdateNode updates an existing node in the specified workflow.
func (n *Node) UpdateNode(ctx context.Context, workflowID, nodeID string, req *UpdateNodeRequest) (*models.Node, error) {
	existing, err := n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, nodeID)
	if err != nil {
		return nil, err
	}

	if req.Kind != "" && req.Kind != existing.Kind {
		return nil, NewValidationError(
			"UpdateNode",
			"KIND_IMMUTABLE",
			fmt.Sprintf("node %s is a %s node", nodeID, existing.Kind),
			ErrKindImmutable,
		)
	}

	if req.Label != nil {
		existing.Label = *req.Label
	}

	if req.Position != nil {
		existing.Position = *req.Position
	}

	if req.Config != nil {
		existing.Config = req.Config
	}

	if err := validateNodeConfig(n.registry, existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now().UTC()

	err = n.persistence.NodeRepository().SaveNode(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	return existing, nil
}

// DeleteNode deletes a node and every edge touching it. With reconnect set,
// a node with exactly one incoming and one outgoing edge is bridged so its
// predecessor feeds its successor directly.
func (n *Node) DeleteNode(ctx context.Context, workflowID, nodeID string, reconnect bool) error {
	nodes, err := n.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	edges, err := n.persistence.EdgeRepository().GetEdgesByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}

	g := graph.NewGraph(nodes, edges)

	node, ok := g.Node(nodeID)
	if !ok {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.ErrNodeNotFound)
	}

	if node.IsTrigger() {
		remaining := slices.DeleteFunc(g.Nodes(), func(other *models.Node) bool { return other.ID == nodeID })
		if err := requireTriggerWhileActive(ctx, n.persistence, "DeleteNode", workflowID, remaining); err != nil {
			return err
		}
	}

	var bridge *models.Edge
	if reconnect {
		bridge = bridgeEdge(g, node.ID)
	}

	err = n.persistence.NodeRepository().DeleteNode(ctx, workflowID, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	triggers, actions := countDelta(node.Kind, -1)
	if err := n.persistence.WorkflowRepository().AdjustCounts(ctx, workflowID, triggers, actions); err != nil {
		return fmt.Errorf("failed to update workflow counters: %w", err)
	}

	if bridge != nil {
		if err := n.persistence.EdgeRepository().SaveEdge(ctx, bridge); err != nil {
			return fmt.Errorf("failed to reconnect edges: %w", err)
		}
	}

	return nil
}

// InsertOnEdge creates a node and splices it into an existing edge A→B,
// leaving A→N and N→B in place of the original edge.
func (n *Node) InsertOnEdge(ctx context.Context, workflowID, edgeID string, req *CreateNodeRequest) (*InsertNodeResult, error) {
	edge, err := n.persistence.EdgeRepository().GetEdgeByWorkflow(ctx, workflowID, edgeID)
	if err != nil {
		return nil, err
	}

	source, err := n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, edge.SourceNodeID)
	if err != nil {
		return nil, err
	}

	target, err := n.persistence.NodeRepository().GetNodeByWorkflow(ctx, workflowID, edge.TargetNodeID)
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Kind:       req.Kind,
		Label:      req.Label,
		Config:     req.Config,
	}

	if node.Config == nil {
		node.Config = models.NodeConfig{}
	}

	if req.Position != nil {
		node.Position = *req.Position
	}

	if node.Position.IsZero() {
		node.Position = models.Position{
			X: (source.Position.X + target.Position.X) / 2,
			Y: (source.Position.Y + target.Position.Y) / 2,
		}
	}

	if err := n.create(ctx, node); err != nil {
		return nil, err
	}

	incoming, outgoing := graph.SplitEdge(edge, node.ID, source.Kind)

	if err := n.persistence.EdgeRepository().DeleteEdge(ctx, workflowID, edge.ID); err != nil {
		return nil, n.undoInsert(ctx, node, edge, fmt.Errorf("failed to remove split edge: %w", err))
	}

	for _, e := range []*models.Edge{incoming, outgoing} {
		if err := n.persistence.EdgeRepository().SaveEdge(ctx, e); err != nil {
			return nil, n.undoInsert(ctx, node, edge, fmt.Errorf("failed to save split edge: %w", err))
		}
	}

	return &InsertNodeResult{Node: node, Incoming: incoming, Outgoing: outgoing}, nil
}

// undoInsert removes the inserted node with any split edge already saved and
// puts the original edge back.
func (n *Node) undoInsert(ctx context.Context, node *models.Node, original *models.Edge, cause error) error {
	if err := n.persistence.NodeRepository().DeleteNode(ctx, node.WorkflowID, node.ID); err != nil {
		return fmt.Errorf("%w (cleanup failed: %v)", cause, err)
	}

	triggers, actions := countDelta(node.Kind, -1)
	if err := n.persistence.WorkflowRepository().AdjustCounts(ctx, node.WorkflowID, triggers, actions); err != nil {
		return fmt.Errorf("%w (cleanup failed: %v)", cause, err)
	}

	if err := n.persistence.EdgeRepository().SaveEdge(ctx, original); err != nil {
		return fmt.Errorf("%w (cleanup failed: %v)", cause, err)
	}

	return cause
}

// nextPosition places a node 200 units below the lowest node.
func nextPosition(nodes []*models.Node) models.Position {
	if len(nodes) == 0 {
		return models.Position{X: autoPositionX, Y: autoPositionX}
	}

	maxY := nodes[0].Position.Y
	for _, node := range nodes[1:] {
		maxY = max(maxY, node.Position.Y)
	}

	return models.Position{X: autoPositionX, Y: maxY + autoPositionStep}
}

// bridgeEdge returns the predecessor→successor edge that replaces a deleted
// node, or nil when the node is not a simple pass-through.
func bridgeEdge(g *graph.Graph, nodeID string) *models.Edge {
	incoming := g.Incoming(nodeID)
	outgoing := g.Outgoing(nodeID)

	if len(incoming) != 1 || len(outgoing) != 1 {
		return nil
	}

	in, out := incoming[0], outgoing[0]
	if in.SourceNodeID == nodeID || out.TargetNodeID == nodeID || in.SourceNodeID == out.TargetNodeID {
		return nil
	}

	return &models.Edge{
		ID:           uuid.New().String(),
		WorkflowID:   in.WorkflowID,
		SourceNodeID: in.SourceNodeID,
		TargetNodeID: out.TargetNodeID,
		Label:        in.Label,
		Condition:    in.Condition,
		CreatedAt:    in.CreatedAt,
	}
}

func countDelta(kind models.NodeKind, delta int) (int, int) {
	switch kind {
	case models.NodeKindTrigger:
		return delta, 0
	case models.NodeKindAction:
		return 0, delta
	default:
		return 0, 0
	}
}

func validateNodeConfig(reg *registry.Registry, node *models.Node) error {
	if reg == nil {
		return nil
	}

	if err := reg.ValidateNode(node); err != nil {
		return &ServiceError{
			Op:      "ValidateNode",
			Code:    "INVALID_NODE_CONFIG",
			Message: fmt.Sprintf("node %s: %v", node.ID, err),
			Err:     fmt.Errorf("%w: %w", ErrInvalidNodeConfig, err),
		}
	}

	return nil
}

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

// Graph exchanges whole workflow graphs with the editor.
type Graph struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewGraph(persistence persistence.Persistence, registry *registry.Registry) *Graph {
	return &Graph{
		persistence: persistence,
		registry:    registry,
	}
}

// GetGraph returns the workflow graph in its editor form.
func (g *Graph) GetGraph(ctx context.Context, workflowID string) (graph.RuntimeGraph, error) {
	nodes, edges, err := g.load(ctx, workflowID)
	if err != nil {
		return graph.RuntimeGraph{}, err
	}

	return graph.ToRuntimeGraph(nodes, edges), nil
}

// SaveGraph replaces every node and edge of the workflow with the editor
// graph. Existing nodes keep their kind.
func (g *Graph) SaveGraph(ctx context.Context, workflowID string, runtime graph.RuntimeGraph) (graph.RuntimeGraph, error) {
	nodes := graph.ToPersistedGraph(runtime.Nodes, workflowID)
	edges := graph.ToPersistedEdges(runtime.Edges, workflowID)

	if err := g.ReplaceGraph(ctx, workflowID, nodes, edges); err != nil {
		return graph.RuntimeGraph{}, err
	}

	return g.GetGraph(ctx, workflowID)
}

// ReplaceGraph validates and stores a full set of nodes and edges for the
// workflow, dropping whatever it had before.
func (g *Graph) ReplaceGraph(ctx context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error {
	existing, existingEdges, err := g.load(ctx, workflowID)
	if err != nil {
		return err
	}

	keepCreatedAt(existing, existingEdges, nodes, edges)

	if err := g.ValidateGraph(existing, nodes, edges); err != nil {
		return err
	}

	if err := requireTriggerWhileActive(ctx, g.persistence, "SaveGraph", workflowID, nodes); err != nil {
		return err
	}

	if err := g.persistence.WorkflowRepository().ReplaceGraph(ctx, workflowID, nodes, edges); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	return nil
}

// requireTriggerWhileActive rejects a node set without a TRIGGER for an
// ACTIVE workflow.
func requireTriggerWhileActive(ctx context.Context, p persistence.Persistence, op, workflowID string, nodes []*models.Node) error {
	if slices.ContainsFunc(nodes, (*models.Node).IsTrigger) {
		return nil
	}

	workflow, err := p.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil
	}

	return NewValidationError(op, "TRIGGER_NODE_REQUIRED",
		"an active workflow must keep at least one trigger node", ErrTriggerNodeRequired)
}

// ValidateGraph checks a full replacement graph before it is stored. Missing
// node and edge IDs are generated.
func (g *Graph) ValidateGraph(existing, nodes []*models.Node, edges []*models.Edge) error {
	kinds := make(map[string]models.NodeKind, len(existing))
	for _, node := range existing {
		kinds[node.ID] = node.Kind
	}

	byID := make(map[string]*models.Node, len(nodes))

	for _, node := range nodes {
		if node.ID == "" {
			node.ID = uuid.New().String()
		}

		if _, dup := byID[node.ID]; dup {
			return NewValidationError("SaveGraph", "DUPLICATE_NODE_ID", fmt.Sprintf("duplicate node id %s", node.ID), ErrInvalidGraph)
		}

		if kind, ok := kinds[node.ID]; ok && kind != node.Kind {
			return NewValidationError(
				"SaveGraph",
				"KIND_IMMUTABLE",
				fmt.Sprintf("node %s is a %s node", node.ID, kind),
				ErrKindImmutable,
			)
		}

		if err := validateNodeConfig(g.registry, node); err != nil {
			return err
		}

		byID[node.ID] = node
	}

	tags := make(map[string]map[string]struct{})
	edgeIDs := make(map[string]struct{}, len(edges))

	for _, edge := range edges {
		if edge.ID == "" {
			edge.ID = uuid.New().String()
		}

		if _, dup := edgeIDs[edge.ID]; dup {
			return NewValidationError("SaveGraph", "DUPLICATE_EDGE_ID", fmt.Sprintf("duplicate edge id %s", edge.ID), ErrInvalidGraph)
		}

		edgeIDs[edge.ID] = struct{}{}

		source, ok := byID[edge.SourceNodeID]
		if _, targetOK := byID[edge.TargetNodeID]; !ok || !targetOK {
			return NewValidationError(
				"SaveGraph",
				"CROSS_WORKFLOW_EDGE",
				fmt.Sprintf("edge %s connects nodes outside the graph", edge.ID),
				ErrCrossWorkflowEdge,
			)
		}

		if !source.IsCondition() || edge.Condition == "" {
			continue
		}

		if tags[source.ID] == nil {
			tags[source.ID] = make(map[string]struct{})
		}

		if _, dup := tags[source.ID][edge.Condition]; dup {
			return duplicateTagError(source.ID, edge.Condition)
		}

		tags[source.ID][edge.Condition] = struct{}{}
	}

	return nil
}

// keepCreatedAt carries creation times over to nodes and edges that survive
// the replacement, so edge order stays stable.
func keepCreatedAt(oldNodes []*models.Node, oldEdges []*models.Edge, nodes []*models.Node, edges []*models.Edge) {
	nodeTimes := make(map[string]time.Time, len(oldNodes))
	for _, n := range oldNodes {
		nodeTimes[n.ID] = n.CreatedAt
	}

	for _, n := range nodes {
		if t, ok := nodeTimes[n.ID]; ok {
			n.CreatedAt = t
		}
	}

	edgeTimes := make(map[string]time.Time, len(oldEdges))
	for _, e := range oldEdges {
		edgeTimes[e.ID] = e.CreatedAt
	}

	for _, e := range edges {
		if t, ok := edgeTimes[e.ID]; ok {
			e.CreatedAt = t
		}
	}
}

func (g *Graph) load(ctx context.Context, workflowID string) ([]*models.Node, []*models.Edge, error) {
	nodes, err := g.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	edges, err := g.persistence.EdgeRepository().GetEdgesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	return nodes, edges, nil
}

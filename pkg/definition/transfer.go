package definition

import (
	"context"
	"fmt"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/services"
	"github.com/google/uuid"
)

// Export reads a stored workflow into a definition. Edges keep their stored order.
func Export(ctx context.Context, p persistence.Persistence, workflowID string) (*Definition, error) {
	wf, err := p.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	nodes, err := p.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	edges, err := p.EdgeRepository().GetEdgesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		Version: CurrentVersion,
		Workflow: models.Workflow{
			Name:          wf.Name,
			Description:   wf.Description,
			Status:        wf.Status,
			FailurePolicy: wf.FailurePolicy,
			Owner:         wf.Owner,
		},
		Nodes: nodes,
		Edges: make([]*models.Edge, 0, len(edges)),
	}

	for _, edge := range edges {
		def.Edges = append(def.Edges, &models.Edge{
			ID:           edge.ID,
			SourceNodeID: edge.SourceNodeID,
			TargetNodeID: edge.TargetNodeID,
			Label:        edge.Label,
			Condition:    edge.Condition,
		})
	}

	return def, nil
}

// Importer creates workflows from definitions through the services, so the
// same validation applies as for the HTTP API.
type Importer struct {
	workflows *services.Workflow
	graphs    *services.Graph
}

func NewImporter(workflows *services.Workflow, graphs *services.Graph) *Importer {
	return &Importer{
		workflows: workflows,
		graphs:    graphs,
	}
}

// ImportOptions overrides parts of the document.
type ImportOptions struct {
	Owner string
	// KeepDraft imports an ACTIVE definition without activating it.
	KeepDraft bool
}

// Import creates a new workflow. When the definition is ACTIVE the workflow
// goes through the regular activation checks. A failed import leaves nothing behind.
func (i *Importer) Import(ctx context.Context, def *Definition, opts ImportOptions) (*models.Workflow, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	owner := def.Workflow.Owner
	if opts.Owner != "" {
		owner = opts.Owner
	}

	wf, err := i.workflows.Create(ctx, services.CreateWorkflowRequest{
		Name:          def.Workflow.Name,
		Description:   def.Workflow.Description,
		Owner:         owner,
		FailurePolicy: def.Workflow.FailurePolicy,
	})
	if err != nil {
		return nil, err
	}

	nodes, edges := remap(def)

	if err := i.graphs.ReplaceGraph(ctx, wf.ID, nodes, edges); err != nil {
		return nil, i.abort(ctx, wf.ID, err)
	}

	if opts.KeepDraft || def.Workflow.Status == "" || def.Workflow.Status == models.WorkflowStatusDraft {
		return i.workflows.FetchByID(ctx, wf.ID)
	}

	// PAUSED is reached through ACTIVE.
	targets := []models.WorkflowStatus{models.WorkflowStatusActive}
	if def.Workflow.Status == models.WorkflowStatusPaused {
		targets = append(targets, models.WorkflowStatusPaused)
	}

	id := wf.ID

	for _, status := range targets {
		if wf, err = i.workflows.ChangeStatus(ctx, id, status); err != nil {
			return nil, i.abort(ctx, id, err)
		}
	}

	return wf, nil
}

func (i *Importer) abort(ctx context.Context, workflowID string, cause error) error {
	if err := i.workflows.Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("%w (cleanup failed: %v)", cause, err)
	}

	return cause
}

// remap gives every node and edge a fresh id. Edge creation times follow
// document order so traversal order survives the round trip.
func remap(def *Definition) ([]*models.Node, []*models.Edge) {
	ids := make(map[string]string, len(def.Nodes))
	nodes := make([]*models.Node, 0, len(def.Nodes))

	for _, n := range def.Nodes {
		id := uuid.New().String()
		ids[n.ID] = id

		nodes = append(nodes, &models.Node{
			ID:       id,
			Kind:     n.Kind,
			Label:    n.Label,
			Position: n.Position,
			Config:   n.Config.Clone(),
		})
	}

	base := time.Now().UTC()
	edges := make([]*models.Edge, 0, len(def.Edges))

	for idx, e := range def.Edges {
		edges = append(edges, &models.Edge{
			ID:           uuid.New().String(),
			SourceNodeID: ids[e.SourceNodeID],
			TargetNodeID: ids[e.TargetNodeID],
			Label:        e.Label,
			Condition:    e.Condition,
			CreatedAt:    base.Add(time.Duration(idx) * time.Millisecond),
		})
	}

	return nodes, edges
}

package workflow

import (
	"context"
	"fmt"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// Repository reads workflows and immutable graph snapshots for execution.
type Repository struct {
	persistence persistence.Persistence
}

func NewRepository(persistence persistence.Persistence) *Repository {
	return &Repository{
		persistence: persistence,
	}
}

func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (r *Repository) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.WorkflowRepository().GetByID(ctx, id)
}

// FetchGraph loads nodes and edges once and freezes them into a snapshot.
func (r *Repository) FetchGraph(ctx context.Context, workflowID string) (*graph.Graph, error) {
	nodes, err := r.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	edges, err := r.persistence.EdgeRepository().GetEdgesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}

	return graph.NewGraph(nodes, edges), nil
}

// FetchActiveWorkflows pages through every ACTIVE workflow.
func (r *Repository) FetchActiveWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	status := models.WorkflowStatusActive
	opts := persistence.ListWorkflowsOptions{Status: &status, Limit: 100, SortBy: "created_at", SortOrder: "asc"}

	var active []*models.Workflow

	for {
		page, err := r.persistence.WorkflowRepository().ListWorkflows(ctx, opts)
		if err != nil {
			return nil, err
		}

		active = append(active, page.Workflows...)

		if !page.HasNextPage {
			return active, nil
		}

		opts.Offset += len(page.Workflows)
	}
}

func (r *Repository) createRun(ctx context.Context, run *models.WorkflowRun) error {
	return r.persistence.RunRepository().CreateRun(ctx, run)
}

func (r *Repository) finishRun(ctx context.Context, runID string, outcome models.RunOutcome) error {
	return r.persistence.RunRepository().FinishRun(ctx, runID, outcome)
}

func (r *Repository) FetchRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	return r.persistence.RunRepository().GetRun(ctx, runID)
}

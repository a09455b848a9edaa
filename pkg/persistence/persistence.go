// Package persistence provides the data storage abstraction for workflow graphs and runs.
package persistence

import (
	"context"

	"github.com/autoflowhq/autoflow/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	NodeRepository() NodeRepository
	EdgeRepository() EdgeRepository
	RunRepository() RunRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListWorkflowsOptions filters, sorts and paginates workflow listings.
type ListWorkflowsOptions struct {
	OwnerID   string
	Status    *models.WorkflowStatus
	Limit     int
	Offset    int
	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc
}

// WorkflowListResult is one page of workflows.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// Normalize applies defaults and validates sort parameters.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = "created_at"
	}

	if o.SortOrder == "" {
		o.SortOrder = "desc"
	}

	switch o.SortBy {
	case "created_at", "updated_at", "name":
	default:
		return NewValidationError("sort_by", "invalid sort field: "+o.SortBy)
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		return NewValidationError("sort_order", "invalid sort order: "+o.SortOrder)
	}

	return nil
}

type WorkflowRepository interface {
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// Save inserts or updates the workflow row. Counters are owned by AdjustCounts.
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow with its nodes and edges. Runs are kept.
	Delete(ctx context.Context, id string) error
	AdjustCounts(ctx context.Context, id string, triggersDelta, actionsDelta int) error
	// ReplaceGraph atomically swaps all nodes and edges and recomputes counters.
	ReplaceGraph(ctx context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error
}

type NodeRepository interface {
	GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error)
	GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error)
	SaveNode(ctx context.Context, node *models.Node) error
	// DeleteNode removes the node and every edge touching it.
	DeleteNode(ctx context.Context, workflowID, nodeID string) error
}

type EdgeRepository interface {
	GetEdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.Edge, error)
	GetEdgeByWorkflow(ctx context.Context, workflowID, edgeID string) (*models.Edge, error)
	SaveEdge(ctx context.Context, edge *models.Edge) error
	DeleteEdge(ctx context.Context, workflowID, edgeID string) error
	// DeleteEdgesMatching removes every edge where the node is source or target.
	DeleteEdgesMatching(ctx context.Context, workflowID, nodeID string) (int, error)
}

// RunRepository is the append-only run ledger.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.WorkflowRun) error
	GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error)
	ListRuns(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowRun, error)
	// FinishRun moves a RUNNING run to a terminal state exactly once.
	FinishRun(ctx context.Context, runID string, outcome models.RunOutcome) error
}

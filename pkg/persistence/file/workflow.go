package file

import (
	"context"
	"sort"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *Persistence
}

// ListWorkflows returns paginated and filtered workflows with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	wr.store.mu.RLock()
	docs, err := wr.store.listDocuments()
	wr.store.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Workflow, 0, len(docs))

	for _, doc := range docs {
		workflow := doc.Workflow

		if opts.OwnerID != "" && workflow.Owner != opts.OwnerID {
			continue
		}

		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	if opts.Offset >= len(filtered) {
		return &persistence.WorkflowListResult{
			Workflows:  make([]*models.Workflow, 0),
			TotalCount: totalCount,
		}, nil
	}

	endIdx := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.WorkflowListResult{
		Workflows:   filtered[opts.Offset:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

// sortWorkflows sorts workflows in-place based on the specified field and order.
func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	sort.SliceStable(workflows, func(i, j int) bool {
		a, b := workflows[i], workflows[j]
		if sortOrder == "desc" {
			a, b = b, a
		}

		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "name":
			return a.Name < b.Name
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, workflowID string) (*models.Workflow, error) {
	wr.store.mu.RLock()
	defer wr.store.mu.RUnlock()

	doc, err := wr.store.load(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	return doc.Workflow, nil
}

// Save creates or updates the workflow, keeping its graph and counters.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	doc, err := wr.store.load(workflow.ID)

	switch {
	case err == nil:
		workflow.TriggersCount = doc.Workflow.TriggersCount
		workflow.ActionsCount = doc.Workflow.ActionsCount
		doc.Workflow = workflow
	case persistence.IsWorkflowNotFound(err):
		doc = &document{Workflow: workflow, Nodes: []*models.Node{}, Edges: []*models.Edge{}}
	default:
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := wr.store.save(doc); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow document, which holds its nodes and edges.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	if _, err := wr.store.load(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	name, _ := safeName(id)
	if err := removeFile(wr.store.workflowsDir(), name); err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) AdjustCounts(_ context.Context, id string, triggersDelta, actionsDelta int) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	doc, err := wr.store.load(id)
	if err != nil {
		return persistence.NewWorkflowError("AdjustCounts", id, err)
	}

	doc.Workflow.TriggersCount = max(0, doc.Workflow.TriggersCount+triggersDelta)
	doc.Workflow.ActionsCount = max(0, doc.Workflow.ActionsCount+actionsDelta)
	doc.Workflow.UpdatedAt = time.Now().UTC()

	return wr.store.save(doc)
}

func (wr *WorkflowRepository) ReplaceGraph(_ context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	doc, err := wr.store.load(workflowID)
	if err != nil {
		return persistence.NewWorkflowError("ReplaceGraph", workflowID, err)
	}

	now := time.Now().UTC()
	triggers, actions := 0, 0

	for _, n := range nodes {
		n.WorkflowID = workflowID
		stamp(&n.CreatedAt, &n.UpdatedAt, now)

		switch n.Kind {
		case models.NodeKindTrigger:
			triggers++
		case models.NodeKindAction:
			actions++
		}
	}

	for _, e := range edges {
		e.WorkflowID = workflowID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}

	doc.Nodes = nodes
	doc.Edges = edges
	doc.Workflow.TriggersCount = triggers
	doc.Workflow.ActionsCount = actions
	doc.Workflow.UpdatedAt = now

	return wr.store.save(doc)
}

func stamp(createdAt, updatedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}

	*updatedAt = now
}

package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/google/uuid"
)

const (
	defaultTriggerLabel       = "Trigger"
	defaultTriggerDescription = "Configure this trigger to start your workflow"
)

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewWorkflow creates a new workflow service. The registry validates node
// configs on activation and may be nil.
func NewWorkflow(persistence persistence.Persistence, registry *registry.Registry) *Workflow {
	return &Workflow{
		persistence: persistence,
		registry:    registry,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	// Pagination
	Limit  int `validate:"min=0,max=100"`
	Offset int `validate:"min=0"`

	// Filtering
	OwnerID string
	Status  *models.WorkflowStatus

	// Sorting
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.Workflow `json:"workflows"`
	TotalCount  int64              `json:"total_count"`
	HasNextPage bool               `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	if err := w.validateListWorkflowsRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	opts := persistence.ListWorkflowsOptions{
		Limit:     req.Limit,
		Offset:    req.Offset,
		OwnerID:   req.OwnerID,
		Status:    req.Status,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	result, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// validateListWorkflowsRequest validates and sets defaults for the request.
func (w *Workflow) validateListWorkflowsRequest(req *ListWorkflowsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}

	allowedSorts := []string{"created_at", "updated_at", "name"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil && !req.Status.Valid() {
		return NewValidationError(
			"validateListWorkflowsRequest",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s'", *req.Status),
			ErrInvalidStatus,
		)
	}

	if req.OwnerID != "" {
		req.OwnerID = strings.TrimSpace(req.OwnerID)
		if req.OwnerID == "" {
			return ErrEmptyOwnerID
		}
	}

	return nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// CreateWorkflowRequest describes a new workflow.
type CreateWorkflowRequest struct {
	Name          string
	Description   string
	Owner         string
	FailurePolicy models.FailurePolicy
	// WithDefaultTrigger seeds the workflow with one unconfigured trigger node.
	WithDefaultTrigger bool
}

// Create adds a new DRAFT workflow to the repository.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	workflow := &models.Workflow{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Owner:         req.Owner,
		FailurePolicy: req.FailurePolicy,
		Status:        models.WorkflowStatusDraft,
	}

	if err := validateWorkflow("Create", workflow); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	if !req.WithDefaultTrigger {
		return workflow, nil
	}

	trigger := &models.Node{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Kind:       models.NodeKindTrigger,
		Label:      defaultTriggerLabel,
		Position:   models.Position{X: 100, Y: 50},
		Config: models.NodeConfig{
			models.ConfigKeyTriggerType: "",
			models.ConfigKeyDescription: defaultTriggerDescription,
		},
	}

	err := w.persistence.WorkflowRepository().ReplaceGraph(ctx, workflow.ID, []*models.Node{trigger}, []*models.Edge{})
	if err != nil {
		return nil, fmt.Errorf("failed to create default trigger: %w", err)
	}

	return w.FetchByID(ctx, workflow.ID)
}

// Update modifies the name, description, owner and failure policy of an
// existing workflow. Status changes go through ChangeStatus.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	workflow *models.Workflow,
) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(workflow.Name)
	existing.Description = workflow.Description
	existing.Owner = workflow.Owner
	existing.FailurePolicy = workflow.FailurePolicy

	if err := validateWorkflow("Update", existing); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return existing, nil
}

// Delete removes a workflow by its ID together with its nodes and edges.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.FetchByID(ctx, workflowID); err != nil {
		return err
	}

	err := w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// allowedTransitions lists the lifecycle moves between distinct states.
var allowedTransitions = map[models.WorkflowStatus][]models.WorkflowStatus{
	models.WorkflowStatusDraft:  {models.WorkflowStatusActive},
	models.WorkflowStatusActive: {models.WorkflowStatusPaused, models.WorkflowStatusDraft},
	models.WorkflowStatusPaused: {models.WorkflowStatusActive, models.WorkflowStatusDraft},
}

// ChangeStatus moves a workflow through its lifecycle. Activation requires
// at least one trigger node and a valid config on every node.
func (w *Workflow) ChangeStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	if !status.Valid() {
		return nil, NewValidationError("ChangeStatus", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", status), ErrInvalidStatus)
	}

	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == status {
		return workflow, nil
	}

	if !slices.Contains(allowedTransitions[workflow.Status], status) {
		return nil, &ServiceError{
			Op:      "ChangeStatus",
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("cannot move workflow from %s to %s", workflow.Status, status),
			Err:     ErrInvalidTransition,
		}
	}

	if status == models.WorkflowStatusActive {
		if err := w.validateForActivation(ctx, workflowID); err != nil {
			return nil, err
		}
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to change workflow status: %w", err)
	}

	return workflow, nil
}

func (w *Workflow) validateForActivation(ctx context.Context, workflowID string) error {
	nodes, err := w.persistence.NodeRepository().GetNodesByWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load nodes: %w", err)
	}

	if !slices.ContainsFunc(nodes, (*models.Node).IsTrigger) {
		return NewValidationError("ChangeStatus", "TRIGGER_NODE_REQUIRED", ErrTriggerNodeRequired.Error(), ErrTriggerNodeRequired)
	}

	for _, node := range nodes {
		if err := validateNodeConfig(w.registry, node); err != nil {
			return err
		}
	}

	return nil
}

func validateWorkflow(op string, workflow *models.Workflow) error {
	if workflow.Name == "" {
		return NewValidationError(op, "NAME_REQUIRED", ErrWorkflowNameRequired.Error(), ErrWorkflowNameRequired)
	}

	if !workflow.FailurePolicy.Valid() {
		return NewValidationError(
			op,
			"INVALID_FAILURE_POLICY",
			fmt.Sprintf("invalid failure policy '%s'", workflow.FailurePolicy),
			ErrInvalidFailurePolicy,
		)
	}

	return nil
}

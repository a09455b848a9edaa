// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/autoflowhq/autoflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RunStarter creates a run and returns its id without waiting for it to finish.
type RunStarter interface {
	Start(ctx context.Context, workflowID string, event *models.InboundEvent) (string, error)
}

// InboundEventSink accepts normalized platform events, either dispatching
// them in process or publishing them for the workers.
type InboundEventSink interface {
	Submit(ctx context.Context, event *models.InboundEvent) error
}

// Services groups the business services behind the API.
type Services struct {
	Workflows *services.Workflow
	Nodes     *services.Node
	Edges     *services.Edge
	Graphs    *services.Graph
	Runs      *services.Run
}

func NewServices(p persistence.Persistence, reg *registry.Registry) Services {
	return Services{
		Workflows: services.NewWorkflow(p, reg),
		Nodes:     services.NewNode(p, reg),
		Edges:     services.NewEdge(p),
		Graphs:    services.NewGraph(p, reg),
		Runs:      services.NewRun(p),
	}
}

// WebhookConfig holds the Instagram webhook secrets. An empty AppSecret
// disables signature verification.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
}

type APIHandlers struct {
	services  Services
	validator *validator.Validate
	registry  *registry.Registry
	runs      RunStarter
	events    InboundEventSink
	webhook   WebhookConfig
}

func NewAPIHandlers(
	svc Services,
	validator *validator.Validate,
	registry *registry.Registry,
	runs RunStarter,
	events InboundEventSink,
	webhook WebhookConfig,
) *APIHandlers {
	return &APIHandlers{
		services:  svc,
		validator: validator,
		registry:  registry,
		runs:      runs,
		events:    events,
		webhook:   webhook,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.services.Workflows.ListWorkflows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":     result.Workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListWorkflowsRequest parses query parameters for listing workflows.
func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.OwnerID = c.Query("owner_id")

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.services.Workflows.HealthCheck(c.Context())

	nodeTypes := len(h.registry.Catalog())
	regOk := nodeTypes > 0
	registryCheck := strconv.Itoa(nodeTypes) + " node types registered"

	status := "unhealthy"
	message := "Autoflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Autoflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.services.Workflows.Create(c.Context(), services.CreateWorkflowRequest{
		Name:               req.Name,
		Description:        req.Description,
		Owner:              req.Owner,
		FailurePolicy:      req.FailurePolicy,
		WithDefaultTrigger: req.WithDefaultTrigger,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.services.Workflows.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Owner != nil {
		existing.Owner = *req.Owner
	}

	if req.FailurePolicy != nil {
		existing.FailurePolicy = *req.FailurePolicy
	}

	updated, err := h.services.Workflows.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.services.Workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeWorkflowStatus moves the workflow through its lifecycle.
func (h *APIHandlers) ChangeWorkflowStatus(c fiber.Ctx) error {
	var req ChangeStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.services.Workflows.ChangeStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

// GetNodeTypes lists the registered node subtypes with their config schemas.
// ?kind=ACTION narrows the list.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	catalog := h.registry.Catalog()

	kind := models.NodeKind(c.Query("kind"))
	if kind == "" {
		return c.JSON(catalog)
	}

	if !kind.Valid() {
		return badRequest(c, "Unknown node kind: "+string(kind))
	}

	filtered := make([]registry.NodeType, 0, len(catalog))

	for _, nt := range catalog {
		if nt.Kind == kind {
			filtered = append(filtered, nt)
		}
	}

	return c.JSON(filtered)
}

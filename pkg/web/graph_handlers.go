package web

import (
	"strconv"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetWorkflowNodes(c fiber.Ctx) error {
	nodes, err := h.services.Nodes.ListNodes(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(nodes)
}

func (h *APIHandlers) GetWorkflowNode(c fiber.Ctx) error {
	node, err := h.services.Nodes.GetNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) CreateWorkflowNode(c fiber.Ctx) error {
	req, err := h.bindCreateNode(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.services.Nodes.CreateNode(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateWorkflowNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.services.Nodes.UpdateNode(c.Context(), c.Params("id"), c.Params("nodeId"), &services.UpdateNodeRequest{
		Kind:     req.Kind,
		Label:    req.Label,
		Position: req.Position,
		Config:   req.Config,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

// DeleteWorkflowNode removes the node. Unless ?reconnect=false, a node with a
// single predecessor and successor is bridged by a new edge.
func (h *APIHandlers) DeleteWorkflowNode(c fiber.Ctx) error {
	reconnect := true

	if raw := c.Query("reconnect"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "Invalid reconnect parameter")
		}

		reconnect = parsed
	}

	if err := h.services.Nodes.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"), reconnect); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// InsertNodeOnEdge splits an edge with a new node.
func (h *APIHandlers) InsertNodeOnEdge(c fiber.Ctx) error {
	req, err := h.bindCreateNode(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.services.Nodes.InsertOnEdge(c.Context(), c.Params("id"), c.Params("edgeId"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) bindCreateNode(c fiber.Ctx) (*services.CreateNodeRequest, error) {
	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, errInvalidJSON
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, err
	}

	return &services.CreateNodeRequest{
		Kind:     req.Kind,
		Label:    req.Label,
		Position: req.Position,
		Config:   req.Config,
	}, nil
}

func (h *APIHandlers) GetWorkflowEdges(c fiber.Ctx) error {
	edges, err := h.services.Edges.ListEdges(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(edges)
}

func (h *APIHandlers) GetWorkflowEdge(c fiber.Ctx) error {
	edge, err := h.services.Edges.GetEdge(c.Context(), c.Params("id"), c.Params("edgeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(edge)
}

func (h *APIHandlers) CreateWorkflowEdge(c fiber.Ctx) error {
	var req CreateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := h.services.Edges.CreateEdge(c.Context(), c.Params("id"), &services.CreateEdgeRequest{
		SourceNodeID: req.SourceNodeID,
		TargetNodeID: req.TargetNodeID,
		Label:        req.Label,
		Condition:    req.Condition,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) UpdateWorkflowEdge(c fiber.Ctx) error {
	var req UpdateEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	edge, err := h.services.Edges.UpdateEdge(c.Context(), c.Params("id"), c.Params("edgeId"), &services.UpdateEdgeRequest{
		Label:     req.Label,
		Condition: req.Condition,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(edge)
}

func (h *APIHandlers) DeleteWorkflowEdge(c fiber.Ctx) error {
	if err := h.services.Edges.DeleteEdge(c.Context(), c.Params("id"), c.Params("edgeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetWorkflowGraph returns the graph in the editor's runtime form.
func (h *APIHandlers) GetWorkflowGraph(c fiber.Ctx) error {
	runtime, err := h.services.Graphs.GetGraph(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(runtime)
}

// SaveWorkflowGraph replaces every node and edge with the posted runtime graph.
func (h *APIHandlers) SaveWorkflowGraph(c fiber.Ctx) error {
	var req graph.RuntimeGraph
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	saved, err := h.services.Graphs.SaveGraph(c.Context(), c.Params("id"), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

// ExecuteWorkflow starts a run. The body is an optional inbound event; an
// empty body or event type means a manual run.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	event := &models.InboundEvent{}

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(event); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if event.EventType == "" {
		event.EventType = models.EventTypeManual
	}

	if event.Source == "" {
		event.Source = sourceAPI
	}

	runID, err := h.runs.Start(c.Context(), c.Params("id"), event)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ExecuteResponse{RunID: runID})
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	limit := 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "Invalid limit parameter")
		}

		limit = parsed
	}

	runs, err := h.services.Runs.ListRuns(c.Context(), c.Params("id"), limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	run, err := h.services.Runs.GetRun(c.Context(), c.Params("runId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

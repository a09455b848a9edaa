package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every API endpoint on the router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/status", h.ChangeWorkflowStatus)

	w.Get("/:id/nodes", h.GetWorkflowNodes)
	w.Post("/:id/nodes", h.CreateWorkflowNode)
	w.Get("/:id/nodes/:nodeId", h.GetWorkflowNode)
	w.Patch("/:id/nodes/:nodeId", h.UpdateWorkflowNode)
	w.Delete("/:id/nodes/:nodeId", h.DeleteWorkflowNode)

	w.Get("/:id/edges", h.GetWorkflowEdges)
	w.Post("/:id/edges", h.CreateWorkflowEdge)
	w.Get("/:id/edges/:edgeId", h.GetWorkflowEdge)
	w.Patch("/:id/edges/:edgeId", h.UpdateWorkflowEdge)
	w.Delete("/:id/edges/:edgeId", h.DeleteWorkflowEdge)
	w.Post("/:id/edges/:edgeId/insert", h.InsertNodeOnEdge)

	w.Get("/:id/graph", h.GetWorkflowGraph)
	w.Put("/:id/graph", h.SaveWorkflowGraph)

	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/runs", h.GetWorkflowRuns)

	router.Get("/runs/:runId", h.GetRun)
	router.Get("/node-types", h.GetNodeTypes)

	router.Get("/webhooks/instagram", h.VerifyInstagramWebhook)
	router.Post("/webhooks/instagram", h.ReceiveInstagramWebhook)
	router.Post("/events", h.ReceiveEvent)

	router.Get("/health", h.HealthCheck)
}

package models

import "sync"

// ExecutionContext is shared by the actions and conditions of one run.
// Conditions only read it. Actions contribute outputs through SetNodeResult.
type ExecutionContext struct {
	RunID      string
	WorkflowID string
	Event      *InboundEvent
	Variables  map[string]any

	mu          sync.RWMutex
	nodeResults map[string]map[string]any
}

func NewExecutionContext(runID, workflowID string, event *InboundEvent) *ExecutionContext {
	return &ExecutionContext{
		RunID:       runID,
		WorkflowID:  workflowID,
		Event:       event,
		Variables:   map[string]any{},
		nodeResults: map[string]map[string]any{},
	}
}

func (c *ExecutionContext) SetNodeResult(nodeID string, output map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nodeResults == nil {
		c.nodeResults = map[string]map[string]any{}
	}

	c.nodeResults[nodeID] = output
}

func (c *ExecutionContext) NodeResult(nodeID string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out, ok := c.nodeResults[nodeID]

	return out, ok
}

// TemplateData returns the view used by templates, scripts and JSONPath lookups:
// {"event": ..., "senderId": ..., "nodes": {id: output}, "variables": ...}.
func (c *ExecutionContext) TemplateData() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make(map[string]any, len(c.nodeResults))
	for id, out := range c.nodeResults {
		nodes[id] = out
	}

	event := c.Event.AsMap()

	return map[string]any{
		"event":       event,
		"senderId":    event["senderId"],
		"payload":     event["payload"],
		"nodes":       nodes,
		"variables":   c.Variables,
		"run_id":      c.RunID,
		"workflow_id": c.WorkflowID,
	}
}

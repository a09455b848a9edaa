package workflow

import (
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/registry"
)

// TriggerMatcher finds the trigger nodes of a graph that accept an inbound event.
type TriggerMatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewTriggerMatcher(registry *registry.Registry, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		registry: registry,
		logger:   logger.With("module", "trigger_matcher"),
	}
}

// Match returns matching triggers in graph order.
func (tm *TriggerMatcher) Match(g *graph.Graph, event *models.InboundEvent) []*models.Node {
	var matched []*models.Node

	for _, node := range g.Triggers() {
		behavior := tm.registry.ResolveNode(node)
		if behavior.Trigger == nil || !behavior.Trigger.Matches(event) {
			continue
		}

		tm.logger.Debug("Trigger matched",
			"node_id", node.ID,
			"trigger_type", behavior.Subtype,
			"event_type", event.EventType)

		matched = append(matched, node)
	}

	return matched
}

// Matches reports whether any trigger of the graph accepts the event.
func (tm *TriggerMatcher) Matches(g *graph.Graph, event *models.InboundEvent) bool {
	return len(tm.Match(g, event)) > 0
}

// Package graph translates between the persisted workflow graph and the
// editor runtime graph, and provides read-only graph snapshots for execution.
package graph

import (
	"github.com/autoflowhq/autoflow/pkg/models"
)

// Runtime node type tags understood by the editor.
const (
	TypeTrigger     = "trigger"
	TypeAction      = "action"
	TypeConditional = "conditional"
	TypeDefault     = "default"

	EdgeTypeButton = "buttonedge"

	DefaultLabel = "Unnamed Node"
	labelKey     = "label"
)

// transientKeys are editor callbacks that must never reach storage.
var transientKeys = map[string]struct{}{
	"onAdd":    {},
	"onRemove": {},
	"onDelete": {},
	"onChange": {},
}

// RuntimeNode is the editor representation of a node.
type RuntimeNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position models.Position `json:"position"`
	Data     map[string]any  `json:"data"`
}

// RuntimeEdgeData carries the branch tag of an editor edge.
type RuntimeEdgeData struct {
	Condition string `json:"condition"`
}

// RuntimeEdge is the editor representation of an edge.
type RuntimeEdge struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Target string          `json:"target"`
	Label  string          `json:"label"`
	Type   string          `json:"type"`
	Data   RuntimeEdgeData `json:"data"`
}

// RuntimeGraph is the document exchanged with the editor.
type RuntimeGraph struct {
	Nodes []RuntimeNode `json:"nodes"`
	Edges []RuntimeEdge `json:"edges"`
}

// TypeForKind maps a stored node kind to its editor type tag.
func TypeForKind(kind models.NodeKind) string {
	switch kind {
	case models.NodeKindTrigger:
		return TypeTrigger
	case models.NodeKindAction:
		return TypeAction
	case models.NodeKindCondition:
		return TypeConditional
	default:
		return TypeDefault
	}
}

// KindForType maps an editor type tag back to a node kind. Unknown tags
// degrade to ACTION.
func KindForType(nodeType string) models.NodeKind {
	switch nodeType {
	case TypeTrigger:
		return models.NodeKindTrigger
	case TypeConditional:
		return models.NodeKindCondition
	default:
		return models.NodeKindAction
	}
}

// ToRuntimeGraph converts stored nodes and edges to the editor form.
// Config attributes are spread into the data bag and the label wins over a
// config attribute of the same name.
func ToRuntimeGraph(nodes []*models.Node, edges []*models.Edge) RuntimeGraph {
	out := RuntimeGraph{
		Nodes: make([]RuntimeNode, 0, len(nodes)),
		Edges: make([]RuntimeEdge, 0, len(edges)),
	}

	for _, node := range nodes {
		if node == nil {
			continue
		}

		out.Nodes = append(out.Nodes, toRuntimeNode(node))
	}

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		out.Edges = append(out.Edges, RuntimeEdge{
			ID:     edge.ID,
			Source: edge.SourceNodeID,
			Target: edge.TargetNodeID,
			Label:  edge.Label,
			Type:   EdgeTypeButton,
			Data:   RuntimeEdgeData{Condition: edge.Condition},
		})
	}

	return out
}

func toRuntimeNode(node *models.Node) RuntimeNode {
	data := make(map[string]any, len(node.Config)+1)
	for k, v := range node.Config {
		data[k] = v
	}

	label := node.Label
	if label == "" {
		label = DefaultLabel
	}

	data[labelKey] = label

	return RuntimeNode{
		ID:       node.ID,
		Type:     TypeForKind(node.Kind),
		Position: node.Position,
		Data:     data,
	}
}

// ToPersistedGraph converts editor nodes to stored nodes of the workflow.
// The label is lifted out of the data bag and transient editor keys are dropped.
func ToPersistedGraph(runtimeNodes []RuntimeNode, workflowID string) []*models.Node {
	out := make([]*models.Node, 0, len(runtimeNodes))

	for _, rn := range runtimeNodes {
		config := make(models.NodeConfig, len(rn.Data))

		var label string

		for k, v := range rn.Data {
			if k == labelKey {
				if s, ok := v.(string); ok {
					label = s
				}

				continue
			}

			if _, skip := transientKeys[k]; skip {
				continue
			}

			config[k] = v
		}

		out = append(out, &models.Node{
			ID:         rn.ID,
			WorkflowID: workflowID,
			Kind:       KindForType(rn.Type),
			Label:      label,
			Position:   rn.Position,
			Config:     config,
		})
	}

	return out
}

// ToPersistedEdges converts editor edges to stored edges of the workflow.
func ToPersistedEdges(runtimeEdges []RuntimeEdge, workflowID string) []*models.Edge {
	out := make([]*models.Edge, 0, len(runtimeEdges))

	for _, re := range runtimeEdges {
		out = append(out, &models.Edge{
			ID:           re.ID,
			WorkflowID:   workflowID,
			SourceNodeID: re.Source,
			TargetNodeID: re.Target,
			Label:        re.Label,
			Condition:    re.Data.Condition,
		})
	}

	return out
}

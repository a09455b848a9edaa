package models

import (
	"strings"
	"time"
)

// NodeKind is the behavioural category of a node. It never changes after creation.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "TRIGGER"
	NodeKindAction    NodeKind = "ACTION"
	NodeKindCondition NodeKind = "CONDITION"
)

func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindTrigger, NodeKindAction, NodeKindCondition:
		return true
	default:
		return false
	}
}

// Config keys naming the subtype of each node kind.
const (
	ConfigKeyTriggerType   = "triggerType"
	ConfigKeyActionType    = "actionType"
	ConfigKeyConditionType = "conditionType"
	ConfigKeyDescription   = "description"
)

// SubtypeKey returns the config attribute holding the subtype for the kind.
func (k NodeKind) SubtypeKey() string {
	switch k {
	case NodeKindTrigger:
		return ConfigKeyTriggerType
	case NodeKindAction:
		return ConfigKeyActionType
	case NodeKindCondition:
		return ConfigKeyConditionType
	default:
		return ""
	}
}

// NodeConfig is the open attribute map attached to a node.
type NodeConfig map[string]any

// String returns the attribute as a string, or "" when absent or not a string.
func (c NodeConfig) String(key string) string {
	if c == nil {
		return ""
	}

	if v, ok := c[key].(string); ok {
		return v
	}

	return ""
}

// Clone returns a shallow copy of the config.
func (c NodeConfig) Clone() NodeConfig {
	out := make(NodeConfig, len(c))
	for k, v := range c {
		out[k] = v
	}

	return out
}

// Position is the editor canvas location of a node.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Position) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Node is a vertex of a workflow graph.
type Node struct {
	ID         string     `json:"id"          yaml:"id"`
	WorkflowID string     `json:"workflow_id" yaml:"-"`
	Kind       NodeKind   `json:"kind"        yaml:"kind"  validate:"required"`
	Label      string     `json:"label"       yaml:"label,omitempty"`
	Position   Position   `json:"position"    yaml:"position"`
	Config     NodeConfig `json:"config"      yaml:"config,omitempty"`
	CreatedAt  time.Time  `json:"created_at"  yaml:"-"`
	UpdatedAt  time.Time  `json:"updated_at"  yaml:"-"`
}

// Subtype returns the node's registry subtype taken from its config.
func (n *Node) Subtype() string {
	return strings.TrimSpace(n.Config.String(n.Kind.SubtypeKey()))
}

func (n *Node) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

func (n *Node) IsAction() bool {
	return n.Kind == NodeKindAction
}

func (n *Node) IsCondition() bool {
	return n.Kind == NodeKindCondition
}

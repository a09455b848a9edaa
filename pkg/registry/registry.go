// Package registry resolves node kinds and subtypes to their behaviour.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

// Behavior is the resolved capability of a node. Exactly one of Trigger,
// Action or Condition is set, matching Kind.
type Behavior struct {
	Kind      models.NodeKind
	Subtype   string
	Trigger   protocol.Trigger
	Action    protocol.Action
	Condition protocol.Condition
	// Fallback is true when the subtype is unknown or its config was rejected.
	Fallback bool
	Err      error
}

type Registry struct {
	logger             *slog.Logger
	mu                 sync.RWMutex
	actionFactories    map[string]protocol.ActionFactory
	triggerFactories   map[string]protocol.TriggerFactory
	conditionFactories map[string]protocol.ConditionFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:             log,
		actionFactories:    make(map[string]protocol.ActionFactory),
		triggerFactories:   make(map[string]protocol.TriggerFactory),
		conditionFactories: make(map[string]protocol.ConditionFactory),
	}
}

func (r *Registry) RegisterAction(actionFactory protocol.ActionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actionFactories[actionFactory.ID()] = actionFactory
}

func (r *Registry) RegisterTrigger(triggerFactory protocol.TriggerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.triggerFactories[triggerFactory.ID()] = triggerFactory
}

func (r *Registry) RegisterCondition(conditionFactory protocol.ConditionFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conditionFactories[conditionFactory.ID()] = conditionFactory
}

// ResolveNode resolves the behaviour of a stored node.
func (r *Registry) ResolveNode(node *models.Node) Behavior {
	return r.Resolve(node.Kind, node.Subtype(), node.Config)
}

// Resolve maps (kind, subtype) to a behaviour built from config. It never
// fails: unknown subtypes and rejected configs resolve to the fallback of
// the kind (a trigger that never matches, an action that does nothing, a
// condition that selects no branch).
func (r *Registry) Resolve(kind models.NodeKind, subtype string, config map[string]any) Behavior {
	behavior := Behavior{Kind: kind, Subtype: subtype}

	var err error

	r.mu.RLock()
	defer r.mu.RUnlock()

	switch kind {
	case models.NodeKindTrigger:
		if factory, ok := r.triggerFactories[subtype]; ok {
			behavior.Trigger, err = factory.Create(config)
		}
	case models.NodeKindAction:
		if factory, ok := r.actionFactories[subtype]; ok {
			behavior.Action, err = factory.Create(config)
		}
	case models.NodeKindCondition:
		if factory, ok := r.conditionFactories[subtype]; ok {
			behavior.Condition, err = factory.Create(config)
		}
	}

	if err != nil {
		r.logger.Warn("node config rejected, using fallback behaviour",
			"kind", kind, "subtype", subtype, "error", err)

		behavior.Err = err
		behavior.Trigger, behavior.Action, behavior.Condition = nil, nil, nil
	}

	if behavior.Trigger == nil && behavior.Action == nil && behavior.Condition == nil {
		behavior.Fallback = true

		switch kind {
		case models.NodeKindTrigger:
			behavior.Trigger = neverTrigger{}
		case models.NodeKindCondition:
			behavior.Condition = noBranchCondition{}
		default:
			behavior.Kind = models.NodeKindAction
			behavior.Action = noopAction{}
		}
	}

	return behavior
}

// NodeType describes a registered subtype for the editor palette.
type NodeType struct {
	Kind        models.NodeKind `json:"kind"`
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Schema      map[string]any  `json:"schema"`
}

// Catalog lists all registered subtypes ordered by kind and id.
func (r *Registry) Catalog() []NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]NodeType, 0, len(r.triggerFactories)+len(r.actionFactories)+len(r.conditionFactories))

	for _, f := range r.triggerFactories {
		out = append(out, describe(models.NodeKindTrigger, f, f.Category()))
	}

	for _, f := range r.actionFactories {
		out = append(out, describe(models.NodeKindAction, f, ""))
	}

	for _, f := range r.conditionFactories {
		out = append(out, describe(models.NodeKindCondition, f, ""))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind > out[j].Kind
		}

		return out[i].ID < out[j].ID
	})

	return out
}

func describe(kind models.NodeKind, d protocol.Descriptor, category string) NodeType {
	return NodeType{
		Kind:        kind,
		ID:          d.ID(),
		Name:        d.Name(),
		Description: d.Description(),
		Category:    category,
		Schema:      d.Schema(),
	}
}

func (r *Registry) descriptor(kind models.NodeKind, subtype string) (protocol.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch kind {
	case models.NodeKindTrigger:
		f, ok := r.triggerFactories[subtype]

		return f, ok
	case models.NodeKindAction:
		f, ok := r.actionFactories[subtype]

		return f, ok
	case models.NodeKindCondition:
		f, ok := r.conditionFactories[subtype]

		return f, ok
	default:
		return nil, false
	}
}

// LoadPlugins registers factories exported by Go plugins under
// <pluginsPath>/{actions,triggers,conditions}/**/*.so.
func (r *Registry) LoadPlugins(pluginsPath string) error {
	actions, err := loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
	if err != nil {
		return err
	}

	for _, f := range actions {
		r.RegisterAction(f)
	}

	triggers, err := loadPlugin[protocol.TriggerFactory](r.logger, pluginsPath, "Trigger")
	if err != nil {
		return err
	}

	for _, f := range triggers {
		r.RegisterTrigger(f)
	}

	conditions, err := loadPlugin[protocol.ConditionFactory](r.logger, pluginsPath, "Condition")
	if err != nil {
		return err
	}

	for _, f := range conditions {
		r.RegisterCondition(f)
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := filepath.Join(pluginsPath, strings.ToLower(symbolName)+"s")
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	var pluginPathList []string

	err := fs.WalkDir(os.DirFS(rootPath), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(p, ".so") {
			pluginPathList = append(pluginPathList, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			if ptr, isPtr := v.(*T); isPtr {
				castV = *ptr
			} else {
				return nil, fmt.Errorf("plugin %s: %s symbol has unexpected type %T", p, symbolName, v)
			}
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}

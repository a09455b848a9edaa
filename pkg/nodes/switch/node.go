// Package switchnode provides a multi-way condition whose branch tag is the
// value found at a JSONPath.
package switchnode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/oliveagle/jsonpath"
)

type Config struct {
	Path    string            `json:"path"              jsonschema:"minLength=2,description=JSONPath whose value selects the branch"`
	Cases   map[string]string `json:"cases,omitempty"   jsonschema:"description=Maps looked up values to edge tags. Values without a case are used as the tag"`
	Default string            `json:"default,omitempty" jsonschema:"description=Tag used when the path is missing"`
}

type SwitchCondition struct {
	path         *jsonpath.Compiled
	cases        map[string]string
	defaultValue string
}

func NewSwitchCondition(config map[string]any) (*SwitchCondition, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		return nil, errors.New("missing required field 'path'")
	}

	compiled, err := jsonpath.Compile(strings.Trim(cfg.Path, "{}"))
	if err != nil {
		return nil, fmt.Errorf("path should be a valid jsonpath expression: %w", err)
	}

	return &SwitchCondition{path: compiled, cases: cfg.Cases, defaultValue: cfg.Default}, nil
}

func (n *SwitchCondition) Decide(_ context.Context, executionCtx *models.ExecutionContext) (string, error) {
	value, err := n.path.Lookup(executionCtx.TemplateData())
	if err != nil || value == nil {
		return n.defaultValue, nil
	}

	key := stringify(value)
	if tag, ok := n.cases[key]; ok {
		return tag, nil
	}

	if key == "" {
		return n.defaultValue, nil
	}

	return key, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

type SwitchConditionFactory struct{}

// nolint:ireturn
func (f *SwitchConditionFactory) Create(config map[string]any) (protocol.Condition, error) {
	return NewSwitchCondition(config)
}

func (f *SwitchConditionFactory) ID() string {
	return "switch"
}

func (f *SwitchConditionFactory) Name() string {
	return "Switch"
}

func (f *SwitchConditionFactory) Description() string {
	return "Routes execution to the edge whose tag matches a value of the run context"
}

func (f *SwitchConditionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewSwitchConditionFactory() *SwitchConditionFactory {
	return &SwitchConditionFactory{}
}

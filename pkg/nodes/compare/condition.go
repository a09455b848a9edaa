// Package compare provides a condition that compares a JSONPath lookup
// against a configured value.
package compare

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/nodes/conditional"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/oliveagle/jsonpath"
)

type Operator string

const (
	OpEquals      Operator = "eq"
	OpNotEquals   Operator = "ne"
	OpContains    Operator = "contains"
	OpGreater     Operator = "gt"
	OpGreaterOrEq Operator = "gte"
	OpLess        Operator = "lt"
	OpLessOrEq    Operator = "lte"
	OpExists      Operator = "exists"
)

type Config struct {
	conditional.Branches

	Path     string   `json:"path"            jsonschema:"minLength=2,pattern=^\\$,description=JSONPath into the run context such as $.payload.text"`
	Operator Operator `json:"operator"        jsonschema:"enum=eq,enum=ne,enum=contains,enum=gt,enum=gte,enum=lt,enum=lte,enum=exists"`
	Value    any      `json:"value,omitempty" jsonschema:"description=Value compared with the lookup result"`
}

type Condition struct {
	path     *jsonpath.Compiled
	operator Operator
	value    any
	branches conditional.Branches
}

func NewCondition(config map[string]any) (*Condition, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		return nil, errors.New("missing required field 'path'")
	}

	compiled, err := jsonpath.Compile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("path should be a valid jsonpath expression: %w", err)
	}

	switch cfg.Operator {
	case OpEquals, OpNotEquals, OpContains, OpGreater, OpGreaterOrEq, OpLess, OpLessOrEq, OpExists:
	case "":
		cfg.Operator = OpEquals
	default:
		return nil, fmt.Errorf("unknown operator '%s'", cfg.Operator)
	}

	return &Condition{path: compiled, operator: cfg.Operator, value: cfg.Value, branches: cfg.Branches}, nil
}

func (c *Condition) Decide(_ context.Context, executionCtx *models.ExecutionContext) (string, error) {
	actual, err := c.path.Lookup(executionCtx.TemplateData())
	found := err == nil && actual != nil

	return c.branches.Tag(Evaluate(c.operator, actual, found, c.value)), nil
}

// Evaluate applies the operator. A missing value only satisfies "ne".
func Evaluate(op Operator, actual any, found bool, expected any) bool {
	if op == OpExists {
		return found
	}

	if !found {
		return op == OpNotEquals
	}

	switch op {
	case OpEquals:
		return equal(actual, expected)
	case OpNotEquals:
		return !equal(actual, expected)
	case OpContains:
		return contains(actual, expected)
	case OpGreater, OpGreaterOrEq, OpLess, OpLessOrEq:
		a, okA := toFloat(actual)
		b, okB := toFloat(expected)

		if !okA || !okB {
			return false
		}

		switch op {
		case OpGreater:
			return a > b
		case OpGreaterOrEq:
			return a >= b
		case OpLess:
			return a < b
		default:
			return a <= b
		}
	default:
		return false
	}
}

func equal(actual, expected any) bool {
	if a, ok := toFloat(actual); ok {
		if b, ok := toFloat(expected); ok {
			return a == b
		}
	}

	if reflect.DeepEqual(actual, expected) {
		return true
	}

	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

func contains(actual, expected any) bool {
	switch v := actual.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(fmt.Sprint(expected)))
	case []any:
		for _, item := range v {
			if equal(item, expected) {
				return true
			}
		}

		return false
	case map[string]any:
		_, ok := v[fmt.Sprint(expected)]

		return ok
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

type ConditionFactory struct {
	id string
}

// nolint:ireturn
func (f *ConditionFactory) Create(config map[string]any) (protocol.Condition, error) {
	return NewCondition(config)
}

func (f *ConditionFactory) ID() string {
	return f.id
}

func (f *ConditionFactory) Name() string {
	return "Data Condition"
}

func (f *ConditionFactory) Description() string {
	return "Checks if specific data exists or matches criteria"
}

func (f *ConditionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewConditionFactory(id string) *ConditionFactory {
	return &ConditionFactory{id: id}
}

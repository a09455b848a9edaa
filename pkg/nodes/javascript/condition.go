// Package javascript provides a condition evaluated as a JavaScript expression.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/nodes/conditional"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
	"github.com/dop251/goja"
)

const defaultTimeout = time.Second

type Config struct {
	conditional.Branches

	Expression string `json:"expression"          jsonschema:"minLength=1,description=JavaScript expression. The run context is bound to $"`
	TimeoutMS  int    `json:"timeoutMs,omitempty" jsonschema:"minimum=1,maximum=10000"`
}

type Condition struct {
	program  *goja.Program
	branches conditional.Branches
	timeout  time.Duration
}

func NewCondition(config map[string]any) (*Condition, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Expression == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	program, err := goja.Compile("condition", cfg.Expression, true)
	if err != nil {
		return nil, fmt.Errorf("invalid javascript expression: %w", err)
	}

	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}

	return &Condition{program: program, branches: cfg.Branches, timeout: timeout}, nil
}

func (c *Condition) Decide(ctx context.Context, executionCtx *models.ExecutionContext) (string, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if err := vm.Set("$", executionCtx.TemplateData()); err != nil {
		return "", fmt.Errorf("error binding context %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt("condition interrupted")
	})
	defer stop()

	val, err := vm.RunProgram(c.program)
	if err != nil {
		return "", fmt.Errorf("error executing javascript %w", err)
	}

	return c.branches.Tag(template.Truthy(val.Export())), nil
}

type ConditionFactory struct{}

// nolint:ireturn
func (f *ConditionFactory) Create(config map[string]any) (protocol.Condition, error) {
	return NewCondition(config)
}

func (f *ConditionFactory) ID() string {
	return "javascript"
}

func (f *ConditionFactory) Name() string {
	return "JavaScript Condition"
}

func (f *ConditionFactory) Description() string {
	return "Evaluates a JavaScript expression against the run context"
}

func (f *ConditionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewConditionFactory() *ConditionFactory {
	return &ConditionFactory{}
}

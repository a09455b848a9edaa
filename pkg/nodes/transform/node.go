// Package transform provides the transform action whose rendered result
// becomes node output for downstream conditions and actions.
package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
)

type Config struct {
	Expression string `json:"expression" jsonschema:"description=Template rendered against the run context. JSON output is decoded"`
}

type TransformAction struct {
	expression string
}

func NewTransformAction(config map[string]any) (*TransformAction, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Expression == "" {
		return nil, fmt.Errorf("missing required field 'expression'")
	}

	return &TransformAction{expression: cfg.Expression}, nil
}

func (a *TransformAction) Execute(_ context.Context, executionCtx *models.ExecutionContext, _ *slog.Logger) (protocol.ActionResult, error) {
	result, err := template.RenderWithContext(a.expression, executionCtx)
	if err != nil {
		return protocol.ActionResult{}, fmt.Errorf("transformation failed: %w", err)
	}

	return protocol.ActionResult{Output: map[string]any{"result": result}}, nil
}

type TransformActionFactory struct{}

// nolint:ireturn
func (f *TransformActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewTransformAction(config)
}

func (f *TransformActionFactory) ID() string {
	return "transform"
}

func (f *TransformActionFactory) Name() string {
	return "Transform"
}

func (f *TransformActionFactory) Description() string {
	return "Renders a template and exposes the result to the following nodes"
}

func (f *TransformActionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewTransformActionFactory() *TransformActionFactory {
	return &TransformActionFactory{}
}

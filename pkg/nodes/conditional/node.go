// Package conditional provides the template condition that routes execution
// to the yes or no branch.
package conditional

import (
	"context"
	"errors"
	"fmt"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/template"
)

type Config struct {
	Branches

	Condition string `json:"condition" jsonschema:"minLength=1,description=Template evaluated for truthiness"`
}

// TemplateCondition renders a template and converts the output to a boolean.
type TemplateCondition struct {
	condition string
	branches  Branches
}

func NewTemplateCondition(config map[string]any) (*TemplateCondition, error) {
	var cfg Config
	if err := protocol.DecodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	if cfg.Condition == "" {
		return nil, errors.New("missing required field 'condition'")
	}

	return &TemplateCondition{condition: cfg.Condition, branches: cfg.Branches}, nil
}

func (c *TemplateCondition) Decide(_ context.Context, executionCtx *models.ExecutionContext) (string, error) {
	result, err := template.RenderWithContext(c.condition, executionCtx)
	if err != nil {
		return "", fmt.Errorf("condition evaluation failed: %w", err)
	}

	return c.branches.Tag(template.Truthy(result)), nil
}

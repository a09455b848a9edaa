package protocol

import (
	"context"

	"github.com/autoflowhq/autoflow/pkg/models"
)

// Condition selects the branch tag of the outgoing edges to follow.
// Conditions only read the execution context.
type Condition interface {
	Decide(ctx context.Context, executionCtx *models.ExecutionContext) (string, error)
}

type ConditionFactory interface {
	Descriptor
	Create(config map[string]any) (Condition, error)
}

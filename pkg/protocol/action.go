package protocol

import (
	"context"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/models"
)

// ActionResult is what an action hands back to the engine.
type ActionResult struct {
	Output  map[string]any
	Skipped bool
}

type Action interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (ActionResult, error)
}

type ActionFactory interface {
	Descriptor
	Create(config map[string]any) (Action, error)
}

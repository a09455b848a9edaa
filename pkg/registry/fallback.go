package registry

import (
	"context"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

type neverTrigger struct{}

func (neverTrigger) Matches(*models.InboundEvent) bool {
	return false
}

type noopAction struct{}

func (noopAction) Execute(ctx context.Context, _ *models.ExecutionContext, logger *slog.Logger) (protocol.ActionResult, error) {
	logger.DebugContext(ctx, "no behaviour registered for action, skipping")

	return protocol.ActionResult{Output: map[string]any{}, Skipped: true}, nil
}

type noBranchCondition struct{}

func (noBranchCondition) Decide(context.Context, *models.ExecutionContext) (string, error) {
	return "", nil
}

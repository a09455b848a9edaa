package services

import (
	"context"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// Run reads the run ledger.
type Run struct {
	persistence persistence.Persistence
}

func NewRun(persistence persistence.Persistence) *Run {
	return &Run{persistence: persistence}
}

// ListRuns returns the most recent runs of a workflow, newest first. Runs of
// deleted workflows stay readable.
func (r *Run) ListRuns(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}

	limit = min(limit, maxRunsLimit)

	return r.persistence.RunRepository().ListRuns(ctx, workflowID, limit)
}

func (r *Run) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	return r.persistence.RunRepository().GetRun(ctx, runID)
}

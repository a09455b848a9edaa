package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// RunRepository stores each run as runs/<id>.json.
type RunRepository struct {
	store *Persistence
}

func (rr *RunRepository) CreateRun(_ context.Context, run *models.WorkflowRun) error {
	rr.store.mu.Lock()
	defer rr.store.mu.Unlock()

	if err := writeJSON(rr.store.runsDir(), run.ID, run); err != nil {
		return persistence.NewRunError("CreateRun", run.ID, err)
	}

	return nil
}

func (rr *RunRepository) GetRun(_ context.Context, runID string) (*models.WorkflowRun, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	run, err := rr.load(runID)
	if err != nil {
		return nil, persistence.NewRunError("GetRun", runID, err)
	}

	return run, nil
}

// ListRuns returns the most recent runs of a workflow first.
func (rr *RunRepository) ListRuns(_ context.Context, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	entries, err := os.ReadDir(rr.store.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.WorkflowRun{}, nil
		}

		return nil, persistence.StorageError("list runs", err)
	}

	runs := make([]*models.WorkflowRun, 0)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		run, err := rr.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}

		if run.WorkflowID == workflowID {
			runs = append(runs, run)
		}
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (rr *RunRepository) FinishRun(_ context.Context, runID string, outcome models.RunOutcome) error {
	rr.store.mu.Lock()
	defer rr.store.mu.Unlock()

	run, err := rr.load(runID)
	if err != nil {
		return persistence.NewRunError("FinishRun", runID, err)
	}

	if run.Status != models.RunStatusRunning {
		return persistence.NewRunError("FinishRun", runID, persistence.ErrRunAlreadyFinished)
	}

	outcome.Apply(run)

	if err := writeJSON(rr.store.runsDir(), run.ID, run); err != nil {
		return persistence.NewRunError("FinishRun", runID, err)
	}

	return nil
}

func (rr *RunRepository) load(runID string) (*models.WorkflowRun, error) {
	name, err := safeName(runID)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(filepath.Join(rr.store.runsDir(), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, persistence.StorageError("read run "+runID, err)
	}

	var run models.WorkflowRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, persistence.StorageError("unmarshal run "+runID, err)
	}

	return &run, nil
}

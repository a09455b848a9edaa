package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
)

// RunScheduler continues runs created by Executor.Start on the snapshot
// Start loaded.
type RunScheduler interface {
	Schedule(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) error
}

// ResumeFunc executes a scheduled run. Executor.ResumeSnapshot is one.
type ResumeFunc func(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) (*models.WorkflowRun, error)

// LocalScheduler resumes runs in goroutines, at most maxConcurrent at a time.
type LocalScheduler struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	resume ResumeFunc
	logger *slog.Logger
}

func NewLocalScheduler(maxConcurrent int, resume ResumeFunc, logger *slog.Logger) *LocalScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &LocalScheduler{
		sem:    make(chan struct{}, maxConcurrent),
		resume: resume,
		logger: logger.With("module", "run_scheduler"),
	}
}

// Schedule never blocks the caller. The run is detached from the caller's cancellation.
func (s *LocalScheduler) Schedule(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) error {
	runCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		if _, err := s.resume(runCtx, run, snapshot); err != nil {
			s.logger.ErrorContext(runCtx, "Scheduled run failed", "run_id", run.ID, "workflow_id", run.WorkflowID, "error", err)
		}
	}()

	return nil
}

// Wait blocks until every scheduled run has finished.
func (s *LocalScheduler) Wait() {
	s.wg.Wait()
}

// Package dispatcher routes inbound events to the ACTIVE workflows whose
// triggers accept them and connects run execution to the event bus.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/workflow"
)

var ErrEventRequired = errors.New("inbound event with an event type is required")

// RunStarter creates a RUNNING run and schedules it. *workflow.Executor implements it.
type RunStarter interface {
	Start(ctx context.Context, workflowID string, event *models.InboundEvent) (string, error)
}

type Dispatcher struct {
	repository *workflow.Repository
	matcher    *workflow.TriggerMatcher
	starter    RunStarter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func New(repository *workflow.Repository, matcher *workflow.TriggerMatcher, starter RunStarter, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repository: repository,
		matcher:    matcher,
		starter:    starter,
		logger:     logger.With("module", "dispatcher"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch starts one run per ACTIVE workflow with a trigger matching the
// event and returns the run ids. A failure for one workflow is logged and
// does not prevent the others from starting; only a failure to list the
// workflows is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.InboundEvent) ([]string, error) {
	if event == nil || event.EventType == "" {
		return nil, ErrEventRequired
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	if d.metrics != nil {
		d.metrics.EventReceived(event.EventType, event.Source)
	}

	active, err := d.repository.FetchActiveWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}

	logger := d.logger.With("event_type", event.EventType, "sender_id", event.SenderID)

	var runIDs []string

	for _, wf := range active {
		snapshot, err := d.repository.FetchGraph(ctx, wf.ID)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to load workflow graph", "workflow_id", wf.ID, "error", err)

			continue
		}

		if !d.matcher.Matches(snapshot, event) {
			continue
		}

		runID, err := d.starter.Start(ctx, wf.ID, event)
		if err != nil {
			// Deactivated between listing and starting.
			if errors.Is(err, workflow.ErrWorkflowNotActive) {
				logger.DebugContext(ctx, "Workflow no longer active", "workflow_id", wf.ID)

				continue
			}

			logger.ErrorContext(ctx, "Failed to start run", "workflow_id", wf.ID, "error", err)

			continue
		}

		logger.InfoContext(ctx, "Run started", "workflow_id", wf.ID, "run_id", runID)

		runIDs = append(runIDs, runID)
	}

	if len(runIDs) == 0 {
		logger.DebugContext(ctx, "No workflow matched inbound event", "active_workflows", len(active))
	}

	return runIDs, nil
}

// Submit dispatches in process. It lets the HTTP API run without an event bus.
func (d *Dispatcher) Submit(ctx context.Context, event *models.InboundEvent) error {
	_, err := d.Dispatch(ctx, event)

	return err
}

package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autoflowhq/autoflow/pkg/eventbus"
	"github.com/autoflowhq/autoflow/pkg/events"
	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/workflow"
)

// BusSink publishes inbound events for the workers instead of dispatching them in process.
type BusSink struct {
	publisher eventbus.EventPublisher
}

func NewBusSink(publisher eventbus.EventPublisher) *BusSink {
	return &BusSink{publisher: publisher}
}

func (s *BusSink) Submit(ctx context.Context, event *models.InboundEvent) error {
	msg := events.NewInboundEventReceived(event)
	if err := msg.Validate(); err != nil {
		return err
	}

	// Keyed by sender so one user's events stay ordered on a partition.
	return s.publisher.Publish(ctx, event.SenderID, msg)
}

// BusScheduler hands runs created by Executor.Start to whichever worker consumes the bus.
type BusScheduler struct {
	publisher eventbus.EventPublisher
}

func NewBusScheduler(publisher eventbus.EventPublisher) *BusScheduler {
	return &BusScheduler{publisher: publisher}
}

func (s *BusScheduler) Schedule(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) error {
	msg := events.NewRunRequested(run)
	if snapshot != nil {
		msg.WithSnapshot(snapshot.Nodes(), snapshot.Edges())
	}

	return s.publisher.Publish(ctx, run.WorkflowID, msg)
}

var _ workflow.RunScheduler = (*BusScheduler)(nil)

// RunResumer continues a RUNNING run. *workflow.Executor implements it.
type RunResumer interface {
	ResumeSnapshot(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) (*models.WorkflowRun, error)
}

// Worker consumes inbound events and run requests from the bus.
type Worker struct {
	dispatcher *Dispatcher
	resumer    RunResumer
	repository *workflow.Repository
	logger     *slog.Logger
}

func NewWorker(dispatcher *Dispatcher, resumer RunResumer, repository *workflow.Repository, logger *slog.Logger) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		resumer:    resumer,
		repository: repository,
		logger:     logger.With("module", "worker"),
	}
}

// Register installs the worker's handlers on the bus. Call Subscribe afterwards.
func (w *Worker) Register(bus eventbus.EventSubscriber) error {
	if err := bus.Handle(events.InboundEventReceivedEvent, w.handleInboundEvent); err != nil {
		return err
	}

	return bus.Handle(events.RunRequestedEvent, w.handleRunRequested)
}

func (w *Worker) handleInboundEvent(ctx context.Context, event any) error {
	received, ok := event.(*events.InboundEventReceived)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	if err := received.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Dropping invalid inbound event", "event_id", received.ID, "error", err)

		return nil
	}

	_, err := w.dispatcher.Dispatch(ctx, received.Event)

	return err
}

func (w *Worker) handleRunRequested(ctx context.Context, event any) error {
	requested, ok := event.(*events.RunRequested)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	if err := requested.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Dropping invalid run request", "event_id", requested.ID, "error", err)

		return nil
	}

	logger := w.logger.With("run_id", requested.Run.ID, "workflow_id", requested.Run.WorkflowID)

	// Redelivered requests must not execute a finished run twice.
	stored, err := w.repository.FetchRun(ctx, requested.Run.ID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", requested.Run.ID, err)
	}

	if stored.Status != models.RunStatusRunning {
		logger.DebugContext(ctx, "Run already finished", "status", stored.Status)

		return nil
	}

	// Requests published without a graph run on the current one.
	var snapshot *graph.Graph
	if requested.HasSnapshot() {
		snapshot = graph.NewGraph(requested.Nodes, requested.Edges)
	}

	run, err := w.resumer.ResumeSnapshot(ctx, stored, snapshot)
	if err != nil {
		// Resume records the failure on the run itself.
		logger.WarnContext(ctx, "Run ended with error", "error", err)

		return nil
	}

	logger.InfoContext(ctx, "Run finished", "status", run.Status, "failure_reason", run.FailureReason)

	return nil
}

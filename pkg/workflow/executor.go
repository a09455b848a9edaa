package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/otelhelper"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxNodeVisits     = 1000
	DefaultMaxConcurrentRuns = 16
)

// Executor runs workflow graphs against inbound events and records the outcome in the run ledger.
type Executor struct {
	repository *Repository
	registry   *registry.Registry
	matcher    *TriggerMatcher
	scheduler  RunScheduler
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics

	timeout           time.Duration
	maxNodeVisits     int
	maxConcurrentRuns int
}

type Option func(*Executor)

func WithTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func WithMaxNodeVisits(limit int) Option {
	return func(e *Executor) {
		if limit > 0 {
			e.maxNodeVisits = limit
		}
	}
}

func WithMaxConcurrentRuns(limit int) Option {
	return func(e *Executor) {
		e.maxConcurrentRuns = limit
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithScheduler replaces the in-process scheduler used by Start.
func WithScheduler(scheduler RunScheduler) Option {
	return func(e *Executor) {
		e.scheduler = scheduler
	}
}

func NewExecutor(repository *Repository, registry *registry.Registry, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		repository:        repository,
		registry:          registry,
		logger:            logger.With("module", "workflow_executor"),
		tracer:            otelhelper.NoopTracer(),
		timeout:           DefaultTimeout,
		maxNodeVisits:     DefaultMaxNodeVisits,
		maxConcurrentRuns: DefaultMaxConcurrentRuns,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.matcher = NewTriggerMatcher(registry, logger)

	if e.scheduler == nil {
		e.scheduler = NewLocalScheduler(e.maxConcurrentRuns, e.ResumeSnapshot, logger)
	}

	return e
}

// Scheduler returns the scheduler used by Start.
//
// nolint:ireturn
func (e *Executor) Scheduler() RunScheduler {
	return e.scheduler
}

// Execute runs the workflow synchronously and returns the terminal run.
// A workflow that is missing or not ACTIVE yields an error and no run.
func (e *Executor) Execute(ctx context.Context, workflowID string, event *models.InboundEvent) (*models.WorkflowRun, error) {
	workflow, snapshot, err := e.load(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	run, err := e.createRun(ctx, workflow, event)
	if err != nil {
		return nil, err
	}

	return e.execute(ctx, run, workflow, snapshot)
}

// Start checks the precondition, loads the graph snapshot and creates the
// RUNNING run, then hands the run and its snapshot to the scheduler and
// returns the run id.
func (e *Executor) Start(ctx context.Context, workflowID string, event *models.InboundEvent) (string, error) {
	workflow, snapshot, err := e.load(ctx, workflowID)
	if err != nil {
		return "", err
	}

	run, err := e.createRun(ctx, workflow, event)
	if err != nil {
		return "", err
	}

	if err := e.scheduler.Schedule(ctx, run, snapshot); err != nil {
		e.finish(ctx, run, time.Now(), 0, models.RunOutcome{
			Status:        models.RunStatusFailed,
			FailureReason: models.FailureReasonInternal,
			FailureDetail: "schedule run: " + err.Error(),
		})

		return "", fmt.Errorf("failed to schedule run %s: %w", run.ID, err)
	}

	return run.ID, nil
}

// Resume executes a run that was created RUNNING by Start against the
// current graph. Prefer ResumeSnapshot when the snapshot of Start is known.
func (e *Executor) Resume(ctx context.Context, run *models.WorkflowRun) (*models.WorkflowRun, error) {
	return e.ResumeSnapshot(ctx, run, nil)
}

// ResumeSnapshot executes a run that was created RUNNING by Start on the
// graph loaded by Start. The workflow status is read again, so a workflow
// deactivated in between ends the run as Cancelled. A nil snapshot loads
// the current graph.
func (e *Executor) ResumeSnapshot(ctx context.Context, run *models.WorkflowRun, snapshot *graph.Graph) (*models.WorkflowRun, error) {
	workflow, err := e.loadWorkflow(ctx, run.WorkflowID)
	if err == nil && snapshot == nil {
		snapshot, err = e.repository.FetchGraph(ctx, run.WorkflowID)
	}

	if err != nil {
		reason := models.FailureReasonInternal
		if errors.Is(err, ErrWorkflowNotActive) {
			reason = models.FailureReasonCancelled
		}

		e.finish(ctx, run, run.StartedAt, 0, models.RunOutcome{
			Status:        models.RunStatusFailed,
			FailureReason: reason,
			FailureDetail: err.Error(),
		})

		return run, err
	}

	return e.execute(ctx, run, workflow, snapshot)
}

func (e *Executor) loadWorkflow(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := e.repository.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.IsExecutable() {
		return nil, fmt.Errorf("%w: workflow %s is %s", ErrWorkflowNotActive, workflowID, workflow.Status)
	}

	return workflow, nil
}

func (e *Executor) load(ctx context.Context, workflowID string) (*models.Workflow, *graph.Graph, error) {
	workflow, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := e.repository.FetchGraph(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	return workflow, snapshot, nil
}

func (e *Executor) createRun(ctx context.Context, workflow *models.Workflow, event *models.InboundEvent) (*models.WorkflowRun, error) {
	if event == nil {
		event = &models.InboundEvent{EventType: models.EventTypeManual, Source: models.EventTypeManual}
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	run := &models.WorkflowRun{
		ID:         uuid.New().String(),
		WorkflowID: workflow.ID,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
		Event:      event,
	}

	if err := e.repository.createRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	e.logger.InfoContext(ctx, "Run created",
		"workflow_id", workflow.ID,
		"run_id", run.ID,
		"event_type", event.EventType)

	return run, nil
}

// runState is the mutable bookkeeping of one run. Traversal is sequential.
type runState struct {
	run       *models.WorkflowRun
	workflow  *models.Workflow
	graph     *graph.Graph
	execCtx   *models.ExecutionContext
	logger    *slog.Logger
	behaviors map[string]registry.Behavior

	visits    int
	attempted int
	succeeded int
	failed    int
}

func (e *Executor) execute(ctx context.Context, run *models.WorkflowRun, workflow *models.Workflow, snapshot *graph.Graph) (*models.WorkflowRun, error) {
	startedAt := time.Now()

	if e.metrics != nil {
		e.metrics.RunStarted()
		defer e.metrics.RunEnded()
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.EventTypeKey, run.Event.EventType),
	)
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	state := &runState{
		run:       run,
		workflow:  workflow,
		graph:     snapshot,
		execCtx:   models.NewExecutionContext(run.ID, workflow.ID, run.Event),
		logger:    e.logger.With("workflow_id", workflow.ID, "run_id", run.ID),
		behaviors: make(map[string]registry.Behavior),
	}

	outcome := e.traverseAll(runCtx, state)
	outcome.ActionsAttempted = state.attempted
	outcome.ActionsSucceeded = state.succeeded
	outcome.ActionsFailed = state.failed

	if outcome.Status == models.RunStatusFailed {
		otelhelper.SetError(span, errors.New(outcome.FailureReason),
			attribute.String("failure_detail", outcome.FailureDetail))
	}

	if err := e.finish(ctx, run, startedAt, state.visits, outcome); err != nil {
		return run, err
	}

	return run, nil
}

// traverseAll walks from every matching trigger and decides the terminal outcome.
func (e *Executor) traverseAll(ctx context.Context, state *runState) models.RunOutcome {
	triggers := e.matcher.Match(state.graph, state.run.Event)
	if len(triggers) == 0 {
		state.logger.InfoContext(ctx, "No trigger matched the event", "event_type", state.run.Event.EventType)

		return models.RunOutcome{
			Status:        models.RunStatusFailed,
			FailureReason: models.FailureReasonNoMatchingTrigger,
			FailureDetail: "no trigger matches event type " + state.run.Event.EventType,
		}
	}

	for _, trigger := range triggers {
		err := e.traverse(ctx, state, trigger)
		if err == nil {
			continue
		}

		return failedOutcome(err)
	}

	// The last node may have outlived the budget without reporting it.
	if err := ctx.Err(); err != nil {
		return failedOutcome(err)
	}

	if state.succeeded == 0 {
		return models.RunOutcome{
			Status:        models.RunStatusFailed,
			FailureReason: models.FailureReasonNoActionSucceeded,
			FailureDetail: fmt.Sprintf("%d actions attempted, none succeeded", state.attempted),
		}
	}

	return models.RunOutcome{Status: models.RunStatusSucceeded}
}

func failedOutcome(err error) models.RunOutcome {
	outcome := models.RunOutcome{Status: models.RunStatusFailed, FailureDetail: err.Error()}

	var actionErr *actionFailedError

	switch {
	case errors.As(err, &actionErr):
		outcome.FailureReason = models.FailureReasonActionFailed
	case errors.Is(err, errVisitBudgetExceeded), errors.Is(err, context.DeadlineExceeded):
		outcome.FailureReason = models.FailureReasonTimeout
	case errors.Is(err, context.Canceled):
		outcome.FailureReason = models.FailureReasonCancelled
	default:
		outcome.FailureReason = models.FailureReasonInternal
	}

	return outcome
}

// traverse walks breadth-first from one trigger. Each traversal has its own
// visited set; a revisited node ends that branch.
func (e *Executor) traverse(ctx context.Context, state *runState, trigger *models.Node) error {
	visited := make(map[string]bool)
	queue := []string{trigger.ID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		nodeID := queue[0]
		queue = queue[1:]

		if visited[nodeID] {
			continue
		}

		visited[nodeID] = true

		node, ok := state.graph.Node(nodeID)
		if !ok {
			continue
		}

		state.visits++
		if state.visits > e.maxNodeVisits {
			return fmt.Errorf("%w: limit %d", errVisitBudgetExceeded, e.maxNodeVisits)
		}

		next, err := e.visit(ctx, state, node)
		if err != nil {
			return err
		}

		queue = append(queue, next...)
	}

	return nil
}

// visit runs one node and returns the ids of the successors to enqueue.
func (e *Executor) visit(ctx context.Context, state *runState, node *models.Node) ([]string, error) {
	behavior := e.behavior(state, node)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.RunIDKey, state.run.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeKindKey, string(behavior.Kind)),
		attribute.String(otelhelper.NodeSubtypeKey, behavior.Subtype),
	)
	defer span.End()

	logger := state.logger.With("node_id", node.ID, "node_kind", behavior.Kind, "node_subtype", behavior.Subtype)

	switch {
	case behavior.Condition != nil:
		return e.decide(ctx, state, node, behavior.Condition, span, logger)
	case behavior.Action != nil:
		return e.act(ctx, state, node, behavior, span, logger)
	default:
		// A trigger reached mid-traversal passes through.
		return targets(state.graph.Outgoing(node.ID)), nil
	}
}

func (e *Executor) act(
	ctx context.Context,
	state *runState,
	node *models.Node,
	behavior registry.Behavior,
	span trace.Span,
	logger *slog.Logger,
) ([]string, error) {
	result, err := behavior.Action.Execute(ctx, state.execCtx, logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		state.attempted++
		state.failed++
		e.recordAction(behavior.Subtype, "failed")
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))
		logger.WarnContext(ctx, "Action failed", "error", err)

		if state.workflow.EffectiveFailurePolicy() == models.FailurePolicyAllOrNothing {
			return nil, &actionFailedError{NodeID: node.ID, Err: err}
		}

		return nil, nil
	}

	if result.Skipped {
		e.recordAction(behavior.Subtype, "skipped")
		logger.InfoContext(ctx, "Action skipped")

		return targets(state.graph.Outgoing(node.ID)), nil
	}

	state.attempted++
	state.succeeded++
	e.recordAction(behavior.Subtype, "succeeded")
	state.execCtx.SetNodeResult(node.ID, result.Output)
	logger.InfoContext(ctx, "Action succeeded")

	return targets(state.graph.Outgoing(node.ID)), nil
}

func (e *Executor) decide(
	ctx context.Context,
	state *runState,
	node *models.Node,
	condition protocol.Condition,
	span trace.Span,
	logger *slog.Logger,
) ([]string, error) {
	tag, err := condition.Decide(ctx, state.execCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))
		logger.WarnContext(ctx, "Condition failed, branch ends", "error", err)

		return nil, nil
	}

	span.SetAttributes(attribute.String(otelhelper.BranchTagKey, tag))

	if tag == "" {
		logger.InfoContext(ctx, "Condition selected no branch")

		return nil, nil
	}

	var next []string

	for _, edge := range state.graph.Outgoing(node.ID) {
		if edge.Condition == tag {
			next = append(next, edge.TargetNodeID)
		}
	}

	logger.InfoContext(ctx, "Condition decided", "tag", tag, "branches", len(next))

	return next, nil
}

func (e *Executor) behavior(state *runState, node *models.Node) registry.Behavior {
	if b, ok := state.behaviors[node.ID]; ok {
		return b
	}

	b := e.registry.ResolveNode(node)
	state.behaviors[node.ID] = b

	return b
}

func (e *Executor) recordAction(actionType, outcome string) {
	if e.metrics != nil {
		e.metrics.ActionExecuted(actionType, outcome)
	}
}

// finish writes the terminal outcome. It runs even when ctx is already cancelled.
func (e *Executor) finish(ctx context.Context, run *models.WorkflowRun, startedAt time.Time, visits int, outcome models.RunOutcome) error {
	outcome.CompletedAt = time.Now().UTC()

	err := e.repository.finishRun(context.WithoutCancel(ctx), run.ID, outcome)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to finish run", "run_id", run.ID, "workflow_id", run.WorkflowID, "error", err)

		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}

	outcome.Apply(run)

	if e.metrics != nil {
		e.metrics.RunFinished(string(outcome.Status), outcome.FailureReason, time.Since(startedAt), visits)
	}

	e.logger.InfoContext(ctx, "Run finished",
		"workflow_id", run.WorkflowID,
		"run_id", run.ID,
		"status", outcome.Status,
		"failure_reason", outcome.FailureReason,
		"actions_attempted", outcome.ActionsAttempted,
		"actions_succeeded", outcome.ActionsSucceeded,
		"actions_failed", outcome.ActionsFailed)

	return nil
}

func targets(edges []*models.Edge) []string {
	out := make([]string, 0, len(edges))
	for _, edge := range edges {
		out = append(out, edge.TargetNodeID)
	}

	return out
}

package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/autoflowhq/autoflow/pkg/metrics"
	"github.com/autoflowhq/autoflow/pkg/mocks"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/persistence/file"
	"github.com/autoflowhq/autoflow/pkg/protocol"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/autoflowhq/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recorder is a test action that appends its "name" to a shared journal.
type recorder struct {
	mu      sync.Mutex
	journal []string
}

func (r *recorder) ID() string             { return "record" }
func (r *recorder) Name() string           { return "Record" }
func (r *recorder) Description() string    { return "Records its name" }
func (r *recorder) Schema() map[string]any { return map[string]any{"type": "object"} }

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.journal...)
}

func (r *recorder) Create(config map[string]any) (protocol.Action, error) {
	name, _ := config["name"].(string)
	fail, _ := config["fail"].(bool)
	sleep, _ := config["sleepMs"].(float64)
	stubborn, _ := config["ignoreCtx"].(bool)

	return &recordAction{recorder: r, name: name, fail: fail, stubborn: stubborn, sleep: time.Duration(sleep) * time.Millisecond}, nil
}

type recordAction struct {
	recorder *recorder
	name     string
	fail     bool
	stubborn bool
	sleep    time.Duration
}

func (a *recordAction) Execute(ctx context.Context, _ *models.ExecutionContext, _ *slog.Logger) (protocol.ActionResult, error) {
	if a.stubborn {
		time.Sleep(a.sleep)
	} else if a.sleep > 0 {
		select {
		case <-time.After(a.sleep):
		case <-ctx.Done():
			return protocol.ActionResult{}, ctx.Err()
		}
	}

	a.recorder.mu.Lock()
	a.recorder.journal = append(a.recorder.journal, a.name)
	a.recorder.mu.Unlock()

	if a.fail {
		return protocol.ActionResult{}, errors.New("boom from " + a.name)
	}

	return protocol.ActionResult{Output: map[string]any{"name": a.name}}, nil
}

type harness struct {
	store     *file.Persistence
	recorder  *recorder
	messenger *mocks.MockMessenger
	executor  *Executor
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	h := &harness{
		store:     file.NewPersistence(t.TempDir()),
		recorder:  &recorder{},
		messenger: &mocks.MockMessenger{},
	}

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes(h.messenger)
	reg.RegisterAction(h.recorder)

	h.executor = NewExecutor(NewRepository(h.store), reg, logger, opts...)

	return h
}

func (h *harness) save(t *testing.T, workflow *models.Workflow, nodes []*models.Node, edges []*models.Edge) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, h.store.WorkflowRepository().Save(ctx, workflow))
	require.NoError(t, h.store.WorkflowRepository().ReplaceGraph(ctx, workflow.ID, nodes, edges))
}

func record(name string, extra ...map[string]any) func(*models.Node) {
	config := map[string]any{"name": name}
	for _, e := range extra {
		for k, v := range e {
			config[k] = v
		}
	}

	return testutil.WithActionNode("record", config)
}

func edgeAt(workflowID, src, tgt string, offset int, overrides ...func(*models.Edge)) *models.Edge {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return testutil.CreateTestEdge(workflowID, src, tgt,
		append(overrides, testutil.WithEdgeCreatedAt(base.Add(time.Duration(offset)*time.Second)))...)
}

func followEvent(sender string) *models.InboundEvent {
	return &models.InboundEvent{EventType: models.EventTypeFollow, SenderID: sender}
}

func TestExecutor_RejectsInactiveWorkflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusDraft))
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	h.save(t, workflow, []*models.Node{trigger}, nil)

	run, err := h.executor.Execute(ctx, workflow.ID, followEvent("u1"))
	require.ErrorIs(t, err, ErrWorkflowNotActive)
	assert.Nil(t, run)

	runs, err := h.store.RunRepository().ListRuns(ctx, workflow.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = h.executor.Execute(ctx, "missing", followEvent("u1"))
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestExecutor_FollowSendsDirectMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	dm := testutil.CreateTestNode(testutil.WithActionNode("direct-message", map[string]any{"message": "Welcome!"}))
	h.save(t, workflow, []*models.Node{trigger, dm}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, dm.ID, 0)})

	h.messenger.On("Send", mock.Anything, "1789", "Welcome!").Return(nil).Once()

	run, err := h.executor.Execute(ctx, workflow.ID, followEvent("1789"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.ActionsSucceeded)
	require.NotNil(t, run.CompletedAt)
	h.messenger.AssertExpectations(t)

	stored, err := h.store.RunRepository().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, stored.Status)
	assert.Equal(t, "1789", stored.Event.SenderID)

	run, err = h.executor.Execute(ctx, workflow.ID, &models.InboundEvent{EventType: models.EventTypeComment, SenderID: "1789"})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonNoMatchingTrigger, run.FailureReason)
	assert.Zero(t, run.ActionsAttempted)
	h.messenger.AssertNumberOfCalls(t, "Send", 1)
}

func TestExecutor_NoTriggerNodes(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	h.save(t, workflow, []*models.Node{testutil.CreateTestNode(record("a"))}, nil)

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.FailureReasonNoMatchingTrigger, run.FailureReason)
	assert.Empty(t, h.recorder.names())
}

func TestExecutor_ConditionRoutesByTag(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   []string
	}{
		{name: "yes branch", sender: "vip", want: []string{"vip-path"}},
		{name: "no branch", sender: "someone", want: []string{"regular-path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			workflow := testutil.CreateTestWorkflow()
			trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
			cond := testutil.CreateTestNode(testutil.WithConditionNode("template", map[string]any{
				"condition": `{{ eq .senderId "vip" }}`,
			}))
			yes := testutil.CreateTestNode(record("vip-path"))
			no := testutil.CreateTestNode(record("regular-path"))

			h.save(t, workflow, []*models.Node{trigger, cond, yes, no}, []*models.Edge{
				edgeAt(workflow.ID, trigger.ID, cond.ID, 0),
				edgeAt(workflow.ID, cond.ID, yes.ID, 1, testutil.WithCondition("yes")),
				edgeAt(workflow.ID, cond.ID, no.ID, 2, testutil.WithCondition("no")),
			})

			run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent(tt.sender))
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusSucceeded, run.Status)
			assert.Equal(t, tt.want, h.recorder.names())
		})
	}
}

func TestExecutor_UnmatchedTagEndsBranch(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	cond := testutil.CreateTestNode(testutil.WithConditionNode("template", map[string]any{"condition": "false"}))
	yes := testutil.CreateTestNode(record("yes-only"))

	h.save(t, workflow, []*models.Node{trigger, cond, yes}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, cond.ID, 0),
		edgeAt(workflow.ID, cond.ID, yes.ID, 1, testutil.WithCondition("yes")),
	})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonNoActionSucceeded, run.FailureReason)
	assert.Empty(t, h.recorder.names())
}

func TestExecutor_CycleVisitsEachNodeOnce(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	a := testutil.CreateTestNode(record("a"))
	b := testutil.CreateTestNode(record("b"))

	h.save(t, workflow, []*models.Node{trigger, a, b}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, a.ID, 0),
		edgeAt(workflow.ID, a.ID, b.ID, 1),
		edgeAt(workflow.ID, b.ID, a.ID, 2),
	})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, []string{"a", "b"}, h.recorder.names())
	assert.Equal(t, 2, run.ActionsSucceeded)
}

func TestExecutor_BreadthFirstOrder(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	left := testutil.CreateTestNode(record("left"))
	right := testutil.CreateTestNode(record("right"))
	deep := testutil.CreateTestNode(record("deep"))

	h.save(t, workflow, []*models.Node{trigger, left, right, deep}, []*models.Edge{
		edgeAt(workflow.ID, left.ID, deep.ID, 0),
		edgeAt(workflow.ID, trigger.ID, right.ID, 2),
		edgeAt(workflow.ID, trigger.ID, left.ID, 1),
	})

	_, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right", "deep"}, h.recorder.names())
}

func TestExecutor_FailurePolicy(t *testing.T) {
	build := func(t *testing.T, policy models.FailurePolicy) (*harness, *models.Workflow) {
		t.Helper()

		h := newHarness(t)
		workflow := testutil.CreateTestWorkflow(testutil.WithFailurePolicy(policy))
		trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
		bad := testutil.CreateTestNode(record("bad", map[string]any{"fail": true}))
		afterBad := testutil.CreateTestNode(record("after-bad"))
		good := testutil.CreateTestNode(record("good"))

		h.save(t, workflow, []*models.Node{trigger, bad, afterBad, good}, []*models.Edge{
			edgeAt(workflow.ID, trigger.ID, bad.ID, 0),
			edgeAt(workflow.ID, trigger.ID, good.ID, 1),
			edgeAt(workflow.ID, bad.ID, afterBad.ID, 2),
		})

		return h, workflow
	}

	t.Run("best effort continues siblings", func(t *testing.T) {
		h, workflow := build(t, models.FailurePolicyBestEffort)

		run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusSucceeded, run.Status)
		assert.Equal(t, 2, run.ActionsAttempted)
		assert.Equal(t, 1, run.ActionsSucceeded)
		assert.Equal(t, 1, run.ActionsFailed)
		assert.Equal(t, []string{"bad", "good"}, h.recorder.names())
	})

	t.Run("all or nothing aborts", func(t *testing.T) {
		h, workflow := build(t, models.FailurePolicyAllOrNothing)

		run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusFailed, run.Status)
		assert.Equal(t, models.FailureReasonActionFailed, run.FailureReason)
		assert.Contains(t, run.FailureDetail, "boom from bad")
		assert.Equal(t, []string{"bad"}, h.recorder.names())
	})
}

func TestExecutor_OnlyFailuresIsNoActionSucceeded(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	bad := testutil.CreateTestNode(record("bad", map[string]any{"fail": true}))
	h.save(t, workflow, []*models.Node{trigger, bad}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, bad.ID, 0)})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.FailureReasonNoActionSucceeded, run.FailureReason)
	assert.Equal(t, 1, run.ActionsFailed)
}

func TestExecutor_UnregisteredActionPassesThrough(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	followUser := testutil.CreateTestNode(testutil.WithActionNode("follow-user", nil))
	after := testutil.CreateTestNode(record("after"))

	h.save(t, workflow, []*models.Node{trigger, followUser, after}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, followUser.ID, 0),
		edgeAt(workflow.ID, followUser.ID, after.ID, 1),
	})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.ActionsAttempted)
	assert.Equal(t, []string{"after"}, h.recorder.names())
}

func TestExecutor_VisitBudget(t *testing.T) {
	h := newHarness(t, WithMaxNodeVisits(2))

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	a := testutil.CreateTestNode(record("a"))
	b := testutil.CreateTestNode(record("b"))

	h.save(t, workflow, []*models.Node{trigger, a, b}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, a.ID, 0),
		edgeAt(workflow.ID, a.ID, b.ID, 1),
	})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonTimeout, run.FailureReason)
	assert.Equal(t, []string{"a"}, h.recorder.names())
}

func TestExecutor_WallClockTimeout(t *testing.T) {
	m := metrics.New()
	h := newHarness(t, WithTimeout(20*time.Millisecond), WithMetrics(m))

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	slow := testutil.CreateTestNode(record("slow", map[string]any{"sleepMs": float64(2000)}))
	h.save(t, workflow, []*models.Node{trigger, slow}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, slow.ID, 0)})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.FailureReasonTimeout, run.FailureReason)
	assert.Zero(t, run.ActionsFailed)
}

func spinningCondition() func(*models.Node) {
	return testutil.WithConditionNode("javascript", map[string]any{
		"expression": "while(true){}",
		"timeoutMs":  float64(5000),
	})
}

func TestExecutor_TimeoutInsideCondition(t *testing.T) {
	h := newHarness(t, WithTimeout(50*time.Millisecond))

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	a := testutil.CreateTestNode(record("a"))
	spin := testutil.CreateTestNode(spinningCondition())
	b := testutil.CreateTestNode(record("b"))

	h.save(t, workflow, []*models.Node{trigger, a, spin, b}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, a.ID, 0),
		edgeAt(workflow.ID, a.ID, spin.ID, 1),
		edgeAt(workflow.ID, spin.ID, b.ID, 2, testutil.WithCondition("yes")),
	})

	started := time.Now()
	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonTimeout, run.FailureReason)
	assert.Equal(t, 1, run.ActionsSucceeded)
	assert.Equal(t, []string{"a"}, h.recorder.names())
}

func TestExecutor_CancelInsideCondition(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	a := testutil.CreateTestNode(record("a"))
	spin := testutil.CreateTestNode(spinningCondition())

	h.save(t, workflow, []*models.Node{trigger, a, spin}, []*models.Edge{
		edgeAt(workflow.ID, trigger.ID, a.ID, 0),
		edgeAt(workflow.ID, a.ID, spin.ID, 1),
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	run, err := h.executor.Execute(ctx, workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonCancelled, run.FailureReason)
}

func TestExecutor_LastActionOutlivesDeadline(t *testing.T) {
	h := newHarness(t, WithTimeout(30*time.Millisecond))

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	slow := testutil.CreateTestNode(record("slow", map[string]any{"sleepMs": float64(150), "ignoreCtx": true}))
	h.save(t, workflow, []*models.Node{trigger, slow}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, slow.ID, 0)})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Equal(t, models.FailureReasonTimeout, run.FailureReason)
	assert.Equal(t, []string{"slow"}, h.recorder.names())
}

func TestExecutor_CancelledContext(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	slow := testutil.CreateTestNode(record("slow", map[string]any{"sleepMs": float64(2000)}))
	h.save(t, workflow, []*models.Node{trigger, slow}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, slow.ID, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	run, err := h.executor.Execute(ctx, workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.FailureReasonCancelled, run.FailureReason)

	stored, err := h.store.RunRepository().GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestExecutor_MultipleTriggersAreIsolated(t *testing.T) {
	h := newHarness(t)

	workflow := testutil.CreateTestWorkflow()
	first := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	second := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	bad := testutil.CreateTestNode(record("bad", map[string]any{"fail": true}))
	shared := testutil.CreateTestNode(record("shared"))

	h.save(t, workflow, []*models.Node{first, second, bad, shared}, []*models.Edge{
		edgeAt(workflow.ID, first.ID, bad.ID, 0),
		edgeAt(workflow.ID, second.ID, shared.ID, 1),
		edgeAt(workflow.ID, first.ID, shared.ID, 2),
	})

	run, err := h.executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	// Each trigger has its own visited set, so the shared node runs once per trigger.
	assert.Equal(t, []string{"bad", "shared", "shared"}, h.recorder.names())
}

func TestExecutor_StartRunsAsynchronously(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeManual))
	a := testutil.CreateTestNode(record("a"))
	h.save(t, workflow, []*models.Node{trigger, a}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, a.ID, 0)})

	runID, err := h.executor.Start(ctx, workflow.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	scheduler, ok := h.executor.Scheduler().(*LocalScheduler)
	require.True(t, ok)
	scheduler.Wait()

	run, err := h.store.RunRepository().GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, models.EventTypeManual, run.Event.EventType)
}

func TestExecutor_StartedRunKeepsItsSnapshot(t *testing.T) {
	h := newHarness(t, WithMaxConcurrentRuns(1))
	ctx := context.Background()

	busy := testutil.CreateTestWorkflow()
	busyTrigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeManual))
	blocker := testutil.CreateTestNode(record("blocker", map[string]any{"sleepMs": float64(150)}))
	h.save(t, busy, []*models.Node{busyTrigger, blocker}, []*models.Edge{edgeAt(busy.ID, busyTrigger.ID, blocker.ID, 0)})

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeManual))
	action := testutil.CreateTestNode(testutil.WithWorkflowID(workflow.ID), record("original"))
	h.save(t, workflow, []*models.Node{trigger, action}, []*models.Edge{edgeAt(workflow.ID, trigger.ID, action.ID, 0)})

	_, err := h.executor.Start(ctx, busy.ID, nil)
	require.NoError(t, err)

	runID, err := h.executor.Start(ctx, workflow.ID, nil)
	require.NoError(t, err)

	edited := testutil.CreateTestNode(testutil.WithID(action.ID), testutil.WithWorkflowID(workflow.ID), record("edited-after-start"))
	require.NoError(t, h.store.NodeRepository().SaveNode(ctx, edited))

	scheduler, ok := h.executor.Scheduler().(*LocalScheduler)
	require.True(t, ok)
	scheduler.Wait()

	run, err := h.store.RunRepository().GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Contains(t, h.recorder.names(), "original")
	assert.NotContains(t, h.recorder.names(), "edited-after-start")
}

func TestExecutor_ResumeAfterDeactivation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeFollow))
	h.save(t, workflow, []*models.Node{trigger}, nil)

	run := &models.WorkflowRun{ID: "run-paused", WorkflowID: workflow.ID, Status: models.RunStatusRunning, StartedAt: time.Now().UTC(), Event: followEvent("u1")}
	require.NoError(t, h.store.RunRepository().CreateRun(ctx, run))

	workflow.Status = models.WorkflowStatusPaused
	require.NoError(t, h.store.WorkflowRepository().Save(ctx, workflow))

	_, err := h.executor.Resume(ctx, run)
	require.ErrorIs(t, err, ErrWorkflowNotActive)

	stored, err := h.store.RunRepository().GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
	assert.Equal(t, models.FailureReasonCancelled, stored.FailureReason)
}

func TestExecutor_StorageFailureOnCreate(t *testing.T) {
	store := mocks.NewMockPersistence()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	workflow := testutil.CreateTestWorkflow()

	store.Workflows.On("GetByID", mock.Anything, workflow.ID).Return(workflow, nil)
	store.Nodes.On("GetNodesByWorkflow", mock.Anything, workflow.ID).Return([]*models.Node{}, nil)
	store.Edges.On("GetEdgesByWorkflow", mock.Anything, workflow.ID).Return([]*models.Edge{}, nil)
	store.Runs.On("CreateRun", mock.Anything, mock.Anything).Return(persistence.StorageError("insert run", errors.New("disk full")))

	executor := NewExecutor(NewRepository(store), registry.NewRegistry(logger), logger)

	_, err := executor.Execute(context.Background(), workflow.ID, followEvent("u1"))
	require.Error(t, err)
	assert.True(t, persistence.IsStorageFailure(err))
	store.Runs.AssertNotCalled(t, "FinishRun", mock.Anything, mock.Anything, mock.Anything)
}

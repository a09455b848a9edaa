package file

import (
	"context"
	"testing"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/autoflowhq/autoflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWorkflow(t *testing.T) (*Persistence, *models.Workflow) {
	t.Helper()

	store := NewPersistence("file://" + t.TempDir())
	workflow := testutil.CreateTestWorkflow()

	require.NoError(t, store.WorkflowRepository().Save(context.Background(), workflow))

	return store, workflow
}

func TestPersistence_HealthCheck(t *testing.T) {
	store := NewPersistence(t.TempDir())

	assert.NoError(t, store.HealthCheck(context.Background()))
	assert.NoError(t, store.Close(context.Background()))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()

	got, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, got.Name)
	assert.Equal(t, models.WorkflowStatusActive, got.Status)

	_, err = store.WorkflowRepository().GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = store.WorkflowRepository().GetByID(ctx, "../escape")
	assert.ErrorIs(t, err, persistence.ErrInvalidInput)
}

func TestWorkflowRepository_SaveKeepsCounters(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()
	repo := store.WorkflowRepository()

	require.NoError(t, repo.AdjustCounts(ctx, workflow.ID, 1, 2))

	workflow.Name = "Renamed"
	workflow.TriggersCount = 0
	require.NoError(t, repo.Save(ctx, workflow))

	got, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, got.TriggersCount)
	assert.Equal(t, 2, got.ActionsCount)

	require.NoError(t, repo.AdjustCounts(ctx, workflow.ID, -5, -1))

	got, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TriggersCount)
	assert.Equal(t, 1, got.ActionsCount)
}

func TestWorkflowRepository_ListWorkflows(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	repo := store.WorkflowRepository()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, repo.Save(ctx, testutil.CreateTestWorkflow(func(w *models.Workflow) {
			w.Name = name
			w.CreatedAt = time.Time{}
		})))
	}

	draft := models.WorkflowStatusDraft
	require.NoError(t, repo.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithStatus(draft),
		func(w *models.Workflow) { w.Name = "delta"; w.Owner = "user-2" },
	)))

	result, err := repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{SortBy: "name", SortOrder: "asc", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.TotalCount)
	assert.True(t, result.HasNextPage)
	require.Len(t, result.Workflows, 2)
	assert.Equal(t, "alpha", result.Workflows[0].Name)
	assert.Equal(t, "bravo", result.Workflows[1].Name)

	result, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{Status: &draft})
	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	assert.Equal(t, "delta", result.Workflows[0].Name)

	result, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{OwnerID: "user-1", Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.Empty(t, result.Workflows)

	_, err = repo.ListWorkflows(ctx, persistence.ListWorkflowsOptions{SortBy: "owner"})
	assert.ErrorIs(t, err, persistence.ErrInvalidInput)
}

func TestNodeRepository_DeleteNodeRemovesTouchingEdges(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()

	trigger := testutil.CreateTestNode(testutil.WithWorkflowID(workflow.ID), testutil.WithTriggerNode(models.EventTypeFollow))
	action := testutil.CreateTestNode(testutil.WithWorkflowID(workflow.ID))
	other := testutil.CreateTestNode(testutil.WithWorkflowID(workflow.ID))

	for _, n := range []*models.Node{trigger, action, other} {
		require.NoError(t, store.NodeRepository().SaveNode(ctx, n))
	}

	require.NoError(t, store.EdgeRepository().SaveEdge(ctx, testutil.CreateTestEdge(workflow.ID, trigger.ID, action.ID)))
	require.NoError(t, store.EdgeRepository().SaveEdge(ctx, testutil.CreateTestEdge(workflow.ID, trigger.ID, other.ID)))

	require.NoError(t, store.NodeRepository().DeleteNode(ctx, workflow.ID, action.ID))

	nodes, err := store.NodeRepository().GetNodesByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	edges, err := store.EdgeRepository().GetEdgesByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, other.ID, edges[0].TargetNodeID)

	err = store.NodeRepository().DeleteNode(ctx, workflow.ID, action.ID)
	assert.True(t, persistence.IsNodeNotFound(err))
}

func TestNodeRepository_SaveNodeUpdatesInPlace(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()

	node := testutil.CreateTestNode(testutil.WithWorkflowID(workflow.ID), testutil.WithLabel("first"))
	require.NoError(t, store.NodeRepository().SaveNode(ctx, node))

	node.Label = "second"
	require.NoError(t, store.NodeRepository().SaveNode(ctx, node))

	got, err := store.NodeRepository().GetNodeByWorkflow(ctx, workflow.ID, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Label)

	_, err = store.NodeRepository().GetNodeByWorkflow(ctx, workflow.ID, "missing")
	assert.True(t, persistence.IsNodeNotFound(err))
}

func TestEdgeRepository_CRUD(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()

	edge := testutil.CreateTestEdge(workflow.ID, "a", "b", testutil.WithCondition("yes"))
	require.NoError(t, store.EdgeRepository().SaveEdge(ctx, edge))

	got, err := store.EdgeRepository().GetEdgeByWorkflow(ctx, workflow.ID, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, "yes", got.Condition)

	require.NoError(t, store.EdgeRepository().DeleteEdge(ctx, workflow.ID, edge.ID))

	require.NoError(t, store.EdgeRepository().SaveEdge(ctx, testutil.CreateTestEdge(workflow.ID, "a", "c")))
	require.NoError(t, store.EdgeRepository().SaveEdge(ctx, testutil.CreateTestEdge(workflow.ID, "c", "d")))

	removed, err := store.EdgeRepository().DeleteEdgesMatching(ctx, workflow.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	err = store.EdgeRepository().DeleteEdge(ctx, workflow.ID, edge.ID)
	assert.True(t, persistence.IsEdgeNotFound(err))
}

func TestWorkflowRepository_ReplaceGraphAndDelete(t *testing.T) {
	store, workflow := setupWorkflow(t)
	ctx := context.Background()

	trigger := testutil.CreateTestNode(testutil.WithTriggerNode(models.EventTypeComment))
	action := testutil.CreateTestNode()
	edge := testutil.CreateTestEdge("", trigger.ID, action.ID)

	require.NoError(t, store.WorkflowRepository().ReplaceGraph(ctx, workflow.ID, []*models.Node{trigger, action}, []*models.Edge{edge}))

	got, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TriggersCount)
	assert.Equal(t, 1, got.ActionsCount)

	edges, err := store.EdgeRepository().GetEdgesByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, workflow.ID, edges[0].WorkflowID)

	require.NoError(t, store.WorkflowRepository().Delete(ctx, workflow.ID))

	_, err = store.NodeRepository().GetNodesByWorkflow(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestRunRepository_Ledger(t *testing.T) {
	store := NewPersistence(t.TempDir())
	ctx := context.Background()
	runs := store.RunRepository()

	older := &models.WorkflowRun{ID: "run-1", WorkflowID: "wf-1", Status: models.RunStatusRunning, StartedAt: time.Now().Add(-time.Minute)}
	newer := &models.WorkflowRun{ID: "run-2", WorkflowID: "wf-1", Status: models.RunStatusRunning, StartedAt: time.Now()}
	foreign := &models.WorkflowRun{ID: "run-3", WorkflowID: "wf-2", Status: models.RunStatusRunning, StartedAt: time.Now()}

	for _, r := range []*models.WorkflowRun{older, newer, foreign} {
		require.NoError(t, runs.CreateRun(ctx, r))
	}

	list, err := runs.ListRuns(ctx, "wf-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].ID)

	outcome := models.RunOutcome{
		Status:           models.RunStatusSucceeded,
		CompletedAt:      time.Now(),
		ActionsAttempted: 1,
		ActionsSucceeded: 1,
	}
	require.NoError(t, runs.FinishRun(ctx, "run-1", outcome))

	got, err := runs.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 1, got.ActionsSucceeded)

	err = runs.FinishRun(ctx, "run-1", outcome)
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyFinished)

	_, err = runs.GetRun(ctx, "nope")
	assert.True(t, persistence.IsRunNotFound(err))
}

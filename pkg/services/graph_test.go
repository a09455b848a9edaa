package services

import (
	"testing"
	"time"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editorGraph() graph.RuntimeGraph {
	return graph.RuntimeGraph{
		Nodes: []graph.RuntimeNode{
			{
				ID:       "t1",
				Type:     graph.TypeTrigger,
				Position: models.Position{X: 100, Y: 50},
				Data:     map[string]any{"label": "New follower", "triggerType": "follow"},
			},
			{
				ID:       "c1",
				Type:     graph.TypeConditional,
				Position: models.Position{X: 100, Y: 250},
				Data: map[string]any{
					"label":         "Has sender",
					"conditionType": "compare",
					"path":          "$.event.senderId",
					"operator":      "exists",
					"onAdd":         "noop",
				},
			},
			{
				ID:       "a1",
				Type:     graph.TypeAction,
				Position: models.Position{X: 100, Y: 450},
				Data:     map[string]any{"label": "Log", "actionType": "log", "message": "hi"},
			},
		},
		Edges: []graph.RuntimeEdge{
			{ID: "e1", Source: "t1", Target: "c1", Type: graph.EdgeTypeButton},
			{ID: "e2", Source: "c1", Target: "a1", Label: "Yes", Type: graph.EdgeTypeButton, Data: graph.RuntimeEdgeData{Condition: "yes"}},
		},
	}
}

func TestGraph_SaveAndGet(t *testing.T) {
	s := newTestServices(t)
	wf := s.createWorkflow(t, true)

	saved, err := s.graphs.SaveGraph(t.Context(), wf.ID, editorGraph())
	require.NoError(t, err)
	require.Len(t, saved.Nodes, 3)
	require.Len(t, saved.Edges, 2)

	byID := map[string]graph.RuntimeNode{}
	for _, n := range saved.Nodes {
		byID[n.ID] = n
	}

	assert.Equal(t, graph.TypeConditional, byID["c1"].Type)
	assert.Equal(t, "Has sender", byID["c1"].Data["label"])
	assert.NotContains(t, byID["c1"].Data, "onAdd")

	stored, err := s.workflows.FetchByID(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TriggersCount)
	assert.Equal(t, 1, stored.ActionsCount)

	node, err := s.nodes.GetNode(t.Context(), wf.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.NodeKindCondition, node.Kind)
	assert.Equal(t, "Has sender", node.Label)

	again, err := s.graphs.GetGraph(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, saved.Edges, again.Edges)
}

func TestGraph_SaveKeepsTriggerOfActiveWorkflow(t *testing.T) {
	s := newTestServices(t)
	wf := s.createWorkflow(t, false)

	_, err := s.graphs.SaveGraph(t.Context(), wf.ID, editorGraph())
	require.NoError(t, err)

	_, err = s.workflows.ChangeStatus(t.Context(), wf.ID, models.WorkflowStatusActive)
	require.NoError(t, err)

	withoutTrigger := editorGraph()
	withoutTrigger.Nodes = withoutTrigger.Nodes[1:]
	withoutTrigger.Edges = withoutTrigger.Edges[1:]

	_, err = s.graphs.SaveGraph(t.Context(), wf.ID, withoutTrigger)
	require.ErrorIs(t, err, ErrTriggerNodeRequired)
	assert.True(t, IsValidationError(err))

	nodes, err := s.nodes.ListNodes(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	_, err = s.workflows.ChangeStatus(t.Context(), wf.ID, models.WorkflowStatusDraft)
	require.NoError(t, err)

	_, err = s.graphs.SaveGraph(t.Context(), wf.ID, withoutTrigger)
	require.NoError(t, err)
}

func TestGraph_SaveKeepsCreationTimes(t *testing.T) {
	s := newTestServices(t)
	wf := s.createWorkflow(t, false)

	_, err := s.graphs.SaveGraph(t.Context(), wf.ID, editorGraph())
	require.NoError(t, err)

	before, err := s.edges.GetEdge(t.Context(), wf.ID, "e2")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = s.graphs.SaveGraph(t.Context(), wf.ID, editorGraph())
	require.NoError(t, err)

	after, err := s.edges.GetEdge(t.Context(), wf.ID, "e2")
	require.NoError(t, err)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
}

func TestGraph_SaveRejectsInvalidGraphs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *graph.RuntimeGraph)
		wantErr error
	}{
		{
			name: "dangling edge",
			mutate: func(g *graph.RuntimeGraph) {
				g.Edges = append(g.Edges, graph.RuntimeEdge{ID: "e3", Source: "a1", Target: "ghost"})
			},
			wantErr: ErrCrossWorkflowEdge,
		},
		{
			name: "duplicate tag",
			mutate: func(g *graph.RuntimeGraph) {
				g.Edges = append(g.Edges, graph.RuntimeEdge{ID: "e3", Source: "c1", Target: "t1", Data: graph.RuntimeEdgeData{Condition: "yes"}})
			},
			wantErr: ErrDuplicateConditionTag,
		},
		{
			name: "duplicate node id",
			mutate: func(g *graph.RuntimeGraph) {
				g.Nodes = append(g.Nodes, g.Nodes[2])
			},
			wantErr: ErrInvalidGraph,
		},
		{
			name: "invalid config",
			mutate: func(g *graph.RuntimeGraph) {
				g.Nodes[2].Data = map[string]any{"actionType": "log", "level": "loud"}
			},
			wantErr: ErrInvalidNodeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServices(t)
			wf := s.createWorkflow(t, false)

			g := editorGraph()
			tt.mutate(&g)

			_, err := s.graphs.SaveGraph(t.Context(), wf.ID, g)
			require.ErrorIs(t, err, tt.wantErr)

			nodes, err := s.nodes.ListNodes(t.Context(), wf.ID)
			require.NoError(t, err)
			assert.Empty(t, nodes)
		})
	}
}

func TestGraph_SaveKeepsNodeKinds(t *testing.T) {
	s := newTestServices(t)
	wf := s.createWorkflow(t, false)

	_, err := s.graphs.SaveGraph(t.Context(), wf.ID, editorGraph())
	require.NoError(t, err)

	g := editorGraph()
	g.Nodes[0].Type = graph.TypeAction

	_, err = s.graphs.SaveGraph(t.Context(), wf.ID, g)
	require.ErrorIs(t, err, ErrKindImmutable)
}

func TestRun_ListAndGet(t *testing.T) {
	s := newTestServices(t)
	started := time.Now().UTC()

	for i, id := range []string{"run-1", "run-2"} {
		require.NoError(t, s.persistence.RunRepository().CreateRun(t.Context(), &models.WorkflowRun{
			ID:         id,
			WorkflowID: "wf-1",
			Status:     models.RunStatusRunning,
			StartedAt:  started.Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := s.runs.ListRuns(t.Context(), "wf-1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)

	run, err := s.runs.GetRun(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, run.Status)

	_, err = s.runs.GetRun(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))
}

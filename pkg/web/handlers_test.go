package web_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/autoflowhq/autoflow/pkg/graph"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence/file"
	"github.com/autoflowhq/autoflow/pkg/registry"
	"github.com/autoflowhq/autoflow/pkg/services"
	"github.com/autoflowhq/autoflow/pkg/web"
	"github.com/autoflowhq/autoflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	verifyToken = "verify-me"
	appSecret   = "app-secret"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*models.InboundEvent
	err    error
}

func (s *recordingSink) Submit(_ context.Context, event *models.InboundEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.events = append(s.events, event)

	return nil
}

func (s *recordingSink) received() []*models.InboundEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*models.InboundEvent(nil), s.events...)
}

type testEnv struct {
	app      *fiber.App
	sink     *recordingSink
	executor *workflow.Executor
	services web.Services
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes(nil)

	env := &testEnv{
		sink:     &recordingSink{},
		executor: workflow.NewExecutor(workflow.NewRepository(persistence), reg, slog.Default()),
		services: web.NewServices(persistence, reg),
	}

	handlers := web.NewAPIHandlers(
		env.services,
		validator.New(validator.WithRequiredStructEnabled()),
		reg,
		env.executor,
		env.sink,
		web.WebhookConfig{VerifyToken: verifyToken, AppSecret: appSecret},
	)

	env.app = fiber.New()
	web.RegisterRoutes(env.app, handlers)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))

	return v
}

func (e *testEnv) createWorkflow(t *testing.T, withTrigger bool) *models.Workflow {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/workflows", web.CreateWorkflowRequest{
		Name:               "Welcome new followers",
		Owner:              "user-1",
		WithDefaultTrigger: withTrigger,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	return decode[*models.Workflow](t, body)
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "successful creation",
			requestBody:    web.CreateWorkflowRequest{Name: "Replies", Owner: "user-1", FailurePolicy: models.FailurePolicyAllOrNothing},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing name",
			requestBody:    web.CreateWorkflowRequest{Owner: "user-1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Name",
		},
		{
			name:           "unknown failure policy",
			requestBody:    map[string]any{"name": "x", "failure_policy": "sometimes"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "FailurePolicy",
		},
		{
			name:           "invalid json",
			requestBody:    []byte("{invalid"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := setupTestApp(t)

			status, body := env.do(t, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status)

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			wf := decode[*models.Workflow](t, body)
			assert.NotEmpty(t, wf.ID)
			assert.Equal(t, models.WorkflowStatusDraft, wf.Status)
			assert.Equal(t, models.FailurePolicyAllOrNothing, wf.FailurePolicy)
		})
	}
}

func TestAPIHandlers_WorkflowCRUD(t *testing.T) {
	env := setupTestApp(t)

	wf := env.createWorkflow(t, true)
	assert.Equal(t, 1, wf.TriggersCount)

	status, body := env.do(t, http.MethodGet, "/workflows/"+wf.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, wf.Name, decode[*models.Workflow](t, body).Name)

	status, body = env.do(t, http.MethodPatch, "/workflows/"+wf.ID, map[string]any{"name": "Renamed", "status": "ACTIVE"})
	require.Equal(t, http.StatusOK, status, string(body))

	updated := decode[*models.Workflow](t, body)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.WorkflowStatusDraft, updated.Status)

	status, body = env.do(t, http.MethodGet, "/workflows?owner_id=user-1", nil)
	require.Equal(t, http.StatusOK, status)

	list := decode[map[string]any](t, body)
	assert.InDelta(t, 1, list["total_count"], 0)

	status, _ = env.do(t, http.MethodGet, "/workflows?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, "/workflows/"+wf.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, body = env.do(t, http.MethodGet, "/workflows/"+wf.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestAPIHandlers_ChangeStatus(t *testing.T) {
	env := setupTestApp(t)

	empty := env.createWorkflow(t, false)

	status, body := env.do(t, http.MethodPost, "/workflows/"+empty.ID+"/status", web.ChangeStatusRequest{Status: models.WorkflowStatusActive})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), services.ErrTriggerNodeRequired.Error())

	status, _ = env.do(t, http.MethodPost, "/workflows/"+empty.ID+"/status", web.ChangeStatusRequest{Status: models.WorkflowStatusPaused})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/workflows/"+empty.ID+"/status", map[string]any{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, status)

	wf := env.createWorkflow(t, true)

	status, body = env.do(t, http.MethodPost, "/workflows/"+wf.ID+"/status", web.ChangeStatusRequest{Status: models.WorkflowStatusActive})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, models.WorkflowStatusActive, decode[*models.Workflow](t, body).Status)
}

func TestAPIHandlers_EditorFlow(t *testing.T) {
	env := setupTestApp(t)
	wf := env.createWorkflow(t, true)
	base := "/workflows/" + wf.ID

	status, body := env.do(t, http.MethodGet, base+"/nodes", nil)
	require.Equal(t, http.StatusOK, status)

	nodes := decode[[]*models.Node](t, body)
	require.Len(t, nodes, 1)
	trigger := nodes[0]

	status, body = env.do(t, http.MethodPatch, base+"/nodes/"+trigger.ID, web.UpdateNodeRequest{
		Config: models.NodeConfig{"triggerType": models.EventTypeFollow},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.do(t, http.MethodPost, base+"/nodes", web.CreateNodeRequest{
		Kind:   models.NodeKindAction,
		Label:  "Say hello",
		Config: models.NodeConfig{"actionType": "log", "message": "hello {{ .event.senderId }}"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	action := decode[*models.Node](t, body)
	assert.InDelta(t, 250.0, action.Position.Y, 0)

	status, body = env.do(t, http.MethodPost, base+"/edges", web.CreateEdgeRequest{SourceNodeID: trigger.ID, TargetNodeID: action.ID})
	require.Equal(t, http.StatusCreated, status, string(body))

	edge := decode[*models.Edge](t, body)

	status, body = env.do(t, http.MethodPost, base+"/edges/"+edge.ID+"/insert", web.CreateNodeRequest{
		Kind:   models.NodeKindCondition,
		Label:  "Has text?",
		Config: models.NodeConfig{"conditionType": "template", "condition": "{{ .payload.text }}"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	inserted := decode[services.InsertNodeResult](t, body)
	assert.Equal(t, trigger.ID, inserted.Incoming.SourceNodeID)
	assert.Equal(t, action.ID, inserted.Outgoing.TargetNodeID)

	status, _ = env.do(t, http.MethodGet, base+"/edges/"+edge.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(t, http.MethodGet, base+"/graph", nil)
	require.Equal(t, http.StatusOK, status)

	runtime := decode[graph.RuntimeGraph](t, body)
	assert.Len(t, runtime.Nodes, 3)
	assert.Len(t, runtime.Edges, 2)

	status, _ = env.do(t, http.MethodDelete, base+"/nodes/"+inserted.Node.ID+"?reconnect=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, base+"/nodes/"+inserted.Node.ID, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = env.do(t, http.MethodGet, base+"/edges", nil)
	require.Equal(t, http.StatusOK, status)

	edges := decode[[]*models.Edge](t, body)
	require.Len(t, edges, 1)
	assert.Equal(t, trigger.ID, edges[0].SourceNodeID)
	assert.Equal(t, action.ID, edges[0].TargetNodeID)

	status, body = env.do(t, http.MethodGet, base+"/nodes/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "node_not_found")
}

func TestAPIHandlers_NodeValidation(t *testing.T) {
	env := setupTestApp(t)
	wf := env.createWorkflow(t, true)
	base := "/workflows/" + wf.ID

	status, _ := env.do(t, http.MethodPost, base+"/nodes", map[string]any{"kind": "LOOP"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, base+"/nodes", web.CreateNodeRequest{
		Kind:   models.NodeKindAction,
		Config: models.NodeConfig{"actionType": "log", "message": "x", "level": "loud"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "level")

	status, body = env.do(t, http.MethodGet, base+"/nodes", nil)
	require.Equal(t, http.StatusOK, status)
	trigger := decode[[]*models.Node](t, body)[0]

	status, _ = env.do(t, http.MethodPatch, base+"/nodes/"+trigger.ID, web.UpdateNodeRequest{Kind: models.NodeKindAction})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, base+"/edges", web.CreateEdgeRequest{SourceNodeID: trigger.ID, TargetNodeID: "elsewhere"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_SaveGraph(t *testing.T) {
	env := setupTestApp(t)
	wf := env.createWorkflow(t, false)

	doc := graph.RuntimeGraph{
		Nodes: []graph.RuntimeNode{
			{ID: "t", Type: graph.TypeTrigger, Data: map[string]any{"label": "Follow", "triggerType": "follow"}},
			{ID: "a", Type: graph.TypeAction, Data: map[string]any{"label": "Log", "actionType": "log", "message": "hi"}},
		},
		Edges: []graph.RuntimeEdge{{ID: "e", Source: "t", Target: "a"}},
	}

	status, body := env.do(t, http.MethodPut, "/workflows/"+wf.ID+"/graph", doc)
	require.Equal(t, http.StatusOK, status, string(body))

	saved := decode[graph.RuntimeGraph](t, body)
	assert.Len(t, saved.Nodes, 2)
	assert.Len(t, saved.Edges, 1)

	doc.Edges = append(doc.Edges, graph.RuntimeEdge{ID: "bad", Source: "t", Target: "ghost"})

	status, _ = env.do(t, http.MethodPut, "/workflows/"+wf.ID+"/graph", doc)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_ExecuteWorkflow(t *testing.T) {
	env := setupTestApp(t)
	wf := env.createWorkflow(t, true)
	base := "/workflows/" + wf.ID

	status, body := env.do(t, http.MethodPost, base+"/execute", nil)
	assert.Equal(t, http.StatusConflict, status, string(body))

	_, body = env.do(t, http.MethodGet, base+"/nodes", nil)
	trigger := decode[[]*models.Node](t, body)[0]

	status, _ = env.do(t, http.MethodPatch, base+"/nodes/"+trigger.ID, web.UpdateNodeRequest{
		Config: models.NodeConfig{"triggerType": models.EventTypeManual},
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, base+"/nodes", web.CreateNodeRequest{
		Kind:   models.NodeKindAction,
		Config: models.NodeConfig{"actionType": "log", "message": "manual run"},
	})
	require.Equal(t, http.StatusCreated, status)

	_, body = env.do(t, http.MethodGet, base+"/nodes", nil)
	nodes := decode[[]*models.Node](t, body)
	require.Len(t, nodes, 2)

	status, _ = env.do(t, http.MethodPost, base+"/edges", web.CreateEdgeRequest{SourceNodeID: nodes[0].ID, TargetNodeID: nodes[1].ID})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPost, base+"/status", web.ChangeStatusRequest{Status: models.WorkflowStatusActive})
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodPost, base+"/execute", nil)
	require.Equal(t, http.StatusAccepted, status, string(body))

	accepted := decode[web.ExecuteResponse](t, body)
	require.NotEmpty(t, accepted.RunID)

	env.executor.Scheduler().(*workflow.LocalScheduler).Wait()

	status, body = env.do(t, http.MethodGet, "/runs/"+accepted.RunID, nil)
	require.Equal(t, http.StatusOK, status)

	run := decode[*models.WorkflowRun](t, body)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, 1, run.ActionsSucceeded)
	assert.Equal(t, models.EventTypeManual, run.Event.EventType)

	status, body = env.do(t, http.MethodGet, base+"/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[map[string][]*models.WorkflowRun](t, body)["runs"], 1)

	status, body = env.do(t, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "run_not_found")

	status, _ = env.do(t, http.MethodPost, "/workflows/missing/execute", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_NodeTypes(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, http.MethodGet, "/node-types?kind=TRIGGER", nil)
	require.Equal(t, http.StatusOK, status)

	types := decode[[]registry.NodeType](t, body)
	require.NotEmpty(t, types)

	for _, nt := range types {
		assert.Equal(t, models.NodeKindTrigger, nt.Kind)
	}

	status, _ = env.do(t, http.MethodGet, "/node-types?kind=LOOP", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_InstagramWebhookVerification(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=4242", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "4242", string(body))

	status, _ = env.do(t, http.MethodGet, "/webhooks/instagram?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=4242", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func signedRequest(t *testing.T, body []byte, secret string) *http.Request {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))

	return req
}

func TestAPIHandlers_InstagramWebhookDelivery(t *testing.T) {
	env := setupTestApp(t)

	body := []byte(`{"object":"instagram","entry":[{"id":"1784","time":1700000000,
		"changes":[{"field":"follows","value":{"from":{"id":"user-5"}}}],
		"messaging":[{"sender":{"id":"user-1"},"recipient":{"id":"1784"},"timestamp":1,"message":{"mid":"m1","text":"hi"}}]}]}`)

	resp, err := env.app.Test(signedRequest(t, body, appSecret))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	received := env.sink.received()
	require.Len(t, received, 2)
	assert.Equal(t, models.EventTypeDirectMessage, received[0].EventType)
	assert.Equal(t, models.EventTypeFollow, received[1].EventType)

	resp, err = env.app.Test(signedRequest(t, body, "wrong-secret"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Len(t, env.sink.received(), 2)
}

func TestAPIHandlers_ReceiveEvent(t *testing.T) {
	env := setupTestApp(t)

	status, _ := env.do(t, http.MethodPost, "/events", map[string]any{
		"eventType": models.EventTypeComment,
		"senderId":  "user-9",
		"payload":   map[string]any{"text": "price?"},
	})
	assert.Equal(t, http.StatusAccepted, status)

	received := env.sink.received()
	require.Len(t, received, 1)
	assert.Equal(t, "price?", received[0].Text())
	assert.Equal(t, "api", received[0].Source)

	status, _ = env.do(t, http.MethodPost, "/events", map[string]any{"senderId": "user-9"})
	assert.Equal(t, http.StatusBadRequest, status)

	env.sink.err = errors.New("bus down")

	status, _ = env.do(t, http.MethodPost, "/events", map[string]any{"eventType": "like"})
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t)

	status, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", decode[map[string]any](t, body)["status"])
}

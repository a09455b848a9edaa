package mocks

import (
	"context"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.WorkflowListResult), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) AdjustCounts(ctx context.Context, id string, triggersDelta, actionsDelta int) error {
	args := m.Called(ctx, id, triggersDelta, actionsDelta)

	return args.Error(0)
}

func (m *MockWorkflowRepository) ReplaceGraph(ctx context.Context, workflowID string, nodes []*models.Node, edges []*models.Edge) error {
	args := m.Called(ctx, workflowID, nodes, edges)

	return args.Error(0)
}

// MockNodeRepository is a mock implementation of persistence.NodeRepository interface.
type MockNodeRepository struct {
	mock.Mock
}

func (m *MockNodeRepository) GetNodesByWorkflow(ctx context.Context, workflowID string) ([]*models.Node, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetNodeByWorkflow(ctx context.Context, workflowID, nodeID string) (*models.Node, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Node), args.Error(1)
}

func (m *MockNodeRepository) SaveNode(ctx context.Context, node *models.Node) error {
	args := m.Called(ctx, node)

	return args.Error(0)
}

func (m *MockNodeRepository) DeleteNode(ctx context.Context, workflowID, nodeID string) error {
	args := m.Called(ctx, workflowID, nodeID)

	return args.Error(0)
}

// MockEdgeRepository is a mock implementation of persistence.EdgeRepository interface.
type MockEdgeRepository struct {
	mock.Mock
}

func (m *MockEdgeRepository) GetEdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.Edge, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Edge), args.Error(1)
}

func (m *MockEdgeRepository) GetEdgeByWorkflow(ctx context.Context, workflowID, edgeID string) (*models.Edge, error) {
	args := m.Called(ctx, workflowID, edgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Edge), args.Error(1)
}

func (m *MockEdgeRepository) SaveEdge(ctx context.Context, edge *models.Edge) error {
	args := m.Called(ctx, edge)

	return args.Error(0)
}

func (m *MockEdgeRepository) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	args := m.Called(ctx, workflowID, edgeID)

	return args.Error(0)
}

func (m *MockEdgeRepository) DeleteEdgesMatching(ctx context.Context, workflowID, nodeID string) (int, error) {
	args := m.Called(ctx, workflowID, nodeID)

	return args.Int(0), args.Error(1)
}

// MockRunRepository is a mock implementation of persistence.RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) CreateRun(ctx context.Context, run *models.WorkflowRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) GetRun(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRun), args.Error(1)
}

func (m *MockRunRepository) ListRuns(ctx context.Context, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowRun), args.Error(1)
}

func (m *MockRunRepository) FinishRun(ctx context.Context, runID string, outcome models.RunOutcome) error {
	args := m.Called(ctx, runID, outcome)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
// Repository accessors return the embedded mocks.
type MockPersistence struct {
	mock.Mock

	Workflows *MockWorkflowRepository
	Nodes     *MockNodeRepository
	Edges     *MockEdgeRepository
	Runs      *MockRunRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows: &MockWorkflowRepository{},
		Nodes:     &MockNodeRepository{},
		Edges:     &MockEdgeRepository{},
		Runs:      &MockRunRepository{},
	}
}

// nolint:ireturn
func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

// nolint:ireturn
func (m *MockPersistence) NodeRepository() persistence.NodeRepository {
	return m.Nodes
}

// nolint:ireturn
func (m *MockPersistence) EdgeRepository() persistence.EdgeRepository {
	return m.Edges
}

// nolint:ireturn
func (m *MockPersistence) RunRepository() persistence.RunRepository {
	return m.Runs
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

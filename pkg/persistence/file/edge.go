package file

import (
	"context"
	"slices"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// EdgeRepository handles edge operations inside workflow documents.
type EdgeRepository struct {
	store *Persistence
}

func (er *EdgeRepository) GetEdgesByWorkflow(_ context.Context, workflowID string) ([]*models.Edge, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	doc, err := er.store.load(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetEdgesByWorkflow", workflowID, err)
	}

	return doc.Edges, nil
}

func (er *EdgeRepository) GetEdgeByWorkflow(_ context.Context, workflowID, edgeID string) (*models.Edge, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	doc, err := er.store.load(workflowID)
	if err != nil {
		return nil, persistence.NewEdgeError("GetEdgeByWorkflow", workflowID, edgeID, err)
	}

	for _, edge := range doc.Edges {
		if edge.ID == edgeID {
			return edge, nil
		}
	}

	return nil, persistence.NewEdgeError("GetEdgeByWorkflow", workflowID, edgeID, persistence.ErrEdgeNotFound)
}

func (er *EdgeRepository) SaveEdge(_ context.Context, edge *models.Edge) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	doc, err := er.store.load(edge.WorkflowID)
	if err != nil {
		return persistence.NewEdgeError("SaveEdge", edge.WorkflowID, edge.ID, err)
	}

	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	idx := slices.IndexFunc(doc.Edges, func(e *models.Edge) bool { return e.ID == edge.ID })
	if idx >= 0 {
		doc.Edges[idx] = edge
	} else {
		doc.Edges = append(doc.Edges, edge)
	}

	return er.store.save(doc)
}

func (er *EdgeRepository) DeleteEdge(_ context.Context, workflowID, edgeID string) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	doc, err := er.store.load(workflowID)
	if err != nil {
		return persistence.NewEdgeError("DeleteEdge", workflowID, edgeID, err)
	}

	before := len(doc.Edges)
	doc.Edges = slices.DeleteFunc(doc.Edges, func(e *models.Edge) bool { return e.ID == edgeID })

	if len(doc.Edges) == before {
		return persistence.NewEdgeError("DeleteEdge", workflowID, edgeID, persistence.ErrEdgeNotFound)
	}

	return er.store.save(doc)
}

func (er *EdgeRepository) DeleteEdgesMatching(_ context.Context, workflowID, nodeID string) (int, error) {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	doc, err := er.store.load(workflowID)
	if err != nil {
		return 0, persistence.NewWorkflowError("DeleteEdgesMatching", workflowID, err)
	}

	before := len(doc.Edges)
	doc.Edges = slices.DeleteFunc(doc.Edges, func(e *models.Edge) bool {
		return e.SourceNodeID == nodeID || e.TargetNodeID == nodeID
	})

	removed := before - len(doc.Edges)
	if removed == 0 {
		return 0, nil
	}

	return removed, er.store.save(doc)
}

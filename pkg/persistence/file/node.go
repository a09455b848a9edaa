package file

import (
	"context"
	"slices"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/autoflowhq/autoflow/pkg/persistence"
)

// NodeRepository handles node operations inside workflow documents.
type NodeRepository struct {
	store *Persistence
}

func (nr *NodeRepository) GetNodesByWorkflow(_ context.Context, workflowID string) ([]*models.Node, error) {
	nr.store.mu.RLock()
	defer nr.store.mu.RUnlock()

	doc, err := nr.store.load(workflowID)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetNodesByWorkflow", workflowID, err)
	}

	return doc.Nodes, nil
}

func (nr *NodeRepository) GetNodeByWorkflow(_ context.Context, workflowID, nodeID string) (*models.Node, error) {
	nr.store.mu.RLock()
	defer nr.store.mu.RUnlock()

	doc, err := nr.store.load(workflowID)
	if err != nil {
		return nil, persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, err)
	}

	for _, node := range doc.Nodes {
		if node.ID == nodeID {
			return node, nil
		}
	}

	return nil, persistence.NewNodeError("GetNodeByWorkflow", workflowID, nodeID, persistence.ErrNodeNotFound)
}

// SaveNode inserts the node or replaces the one with the same ID.
func (nr *NodeRepository) SaveNode(_ context.Context, node *models.Node) error {
	nr.store.mu.Lock()
	defer nr.store.mu.Unlock()

	doc, err := nr.store.load(node.WorkflowID)
	if err != nil {
		return persistence.NewNodeError("SaveNode", node.WorkflowID, node.ID, err)
	}

	stamp(&node.CreatedAt, &node.UpdatedAt, time.Now().UTC())

	idx := slices.IndexFunc(doc.Nodes, func(n *models.Node) bool { return n.ID == node.ID })
	if idx >= 0 {
		node.CreatedAt = doc.Nodes[idx].CreatedAt
		doc.Nodes[idx] = node
	} else {
		doc.Nodes = append(doc.Nodes, node)
	}

	return nr.store.save(doc)
}

func (nr *NodeRepository) DeleteNode(_ context.Context, workflowID, nodeID string) error {
	nr.store.mu.Lock()
	defer nr.store.mu.Unlock()

	doc, err := nr.store.load(workflowID)
	if err != nil {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, err)
	}

	before := len(doc.Nodes)
	doc.Nodes = slices.DeleteFunc(doc.Nodes, func(n *models.Node) bool { return n.ID == nodeID })

	if len(doc.Nodes) == before {
		return persistence.NewNodeError("DeleteNode", workflowID, nodeID, persistence.ErrNodeNotFound)
	}

	doc.Edges = slices.DeleteFunc(doc.Edges, func(e *models.Edge) bool {
		return e.SourceNodeID == nodeID || e.TargetNodeID == nodeID
	})

	return nr.store.save(doc)
}

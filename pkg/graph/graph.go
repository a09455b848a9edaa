package graph

import (
	"slices"
	"strings"

	"github.com/autoflowhq/autoflow/pkg/models"
)

// Graph is an immutable adjacency snapshot of one workflow.
type Graph struct {
	nodes    map[string]*models.Node
	order    []string
	outgoing map[string][]*models.Edge
	incoming map[string][]*models.Edge
}

// NewGraph indexes the nodes and edges. Edges with an endpoint outside the
// node set are ignored. Outgoing edges are ordered by creation time, then id.
func NewGraph(nodes []*models.Node, edges []*models.Edge) *Graph {
	g := &Graph{
		nodes:    make(map[string]*models.Node, len(nodes)),
		order:    make([]string, 0, len(nodes)),
		outgoing: make(map[string][]*models.Edge),
		incoming: make(map[string][]*models.Edge),
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}

		if _, dup := g.nodes[n.ID]; !dup {
			g.order = append(g.order, n.ID)
		}

		g.nodes[n.ID] = n
	}

	for _, e := range edges {
		if e == nil {
			continue
		}

		if _, ok := g.nodes[e.SourceNodeID]; !ok {
			continue
		}

		if _, ok := g.nodes[e.TargetNodeID]; !ok {
			continue
		}

		g.outgoing[e.SourceNodeID] = append(g.outgoing[e.SourceNodeID], e)
		g.incoming[e.TargetNodeID] = append(g.incoming[e.TargetNodeID], e)
	}

	for _, list := range g.outgoing {
		sortEdges(list)
	}

	for _, list := range g.incoming {
		sortEdges(list)
	}

	return g
}

func sortEdges(edges []*models.Edge) {
	slices.SortStableFunc(edges, func(a, b *models.Edge) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})
}

func (g *Graph) Node(id string) (*models.Node, bool) {
	n, ok := g.nodes[id]

	return n, ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*models.Node {
	out := make([]*models.Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}

	return out
}

// Edges returns every indexed edge, grouped by source in node order.
func (g *Graph) Edges() []*models.Edge {
	var out []*models.Edge
	for _, id := range g.order {
		out = append(out, g.outgoing[id]...)
	}

	return out
}

func (g *Graph) Outgoing(id string) []*models.Edge {
	return g.outgoing[id]
}

func (g *Graph) Incoming(id string) []*models.Edge {
	return g.incoming[id]
}

// Triggers returns the TRIGGER nodes in insertion order.
func (g *Graph) Triggers() []*models.Node {
	var out []*models.Node

	for _, id := range g.order {
		if n := g.nodes[id]; n.IsTrigger() {
			out = append(out, n)
		}
	}

	return out
}

// CountKinds returns how many nodes of each kind the graph holds.
func (g *Graph) CountKinds() map[models.NodeKind]int {
	counts := make(map[models.NodeKind]int, 3)
	for _, n := range g.nodes {
		counts[n.Kind]++
	}

	return counts
}

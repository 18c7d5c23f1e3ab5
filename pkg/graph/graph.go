// Package graph holds the canonical in-memory representation of a project's
// node graph: nodes, directed parent→child edges, and the adjacency indexes
// derived from them. It is a pure data holder — every structural change
// arrives through pkg/editor or Reconcile, never ad hoc.
package graph

import (
	"fmt"

	"github.com/pengraph/pengraph/pkg/model"
)

// Graph is the live, mutable model. It is not safe for concurrent use; the
// owning editor serializes access.
type Graph struct {
	nodes     map[string]*model.Node
	nodeOrder []string // insertion order, kept stable for deterministic output

	edges     map[string]model.Edge
	edgeOrder []string

	// Adjacency indexes. children[src] and parents[dst] mirror the edge set
	// exactly; every mutation maintains both plus the ParentIDs/ChildIDs
	// slices on the nodes themselves.
	children map[string][]string
	parents  map[string][]string

	// edgeGen increments whenever the edge-id set changes. The reconciler
	// uses it to avoid replacing the held edge collection when nothing
	// structural moved.
	edgeGen uint64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*model.Node),
		edges:    make(map[string]model.Edge),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *model.Node {
	return g.nodes[id]
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns the current nodes in insertion order.
func (g *Graph) Nodes() []model.Node {
	out := make([]model.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Edge returns the edge with the given id and whether it exists.
func (g *Graph) Edge(id string) (model.Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// HasEdge reports whether a source→target edge exists.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.edges[model.EdgeID(source, target)]
	return ok
}

// Edges returns the current edges in insertion order.
func (g *Graph) Edges() []model.Edge {
	out := make([]model.Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// EdgeGeneration identifies the current edge-id set. It changes only when
// an edge is added or removed.
func (g *Graph) EdgeGeneration() uint64 { return g.edgeGen }

// ParentsOf returns the ids of the direct parents of id, in the order the
// links were recorded. The first entry is the "first recorded parent" that
// single-path tracing follows.
func (g *Graph) ParentsOf(id string) []string {
	return append([]string(nil), g.parents[id]...)
}

// ChildrenOf returns the ids of the direct children of id.
func (g *Graph) ChildrenOf(id string) []string {
	return append([]string(nil), g.children[id]...)
}

// AddNode inserts a node. The node's ParentIDs/ChildIDs are reset: edges are
// the only source of adjacency and must be added separately.
func (g *Graph) AddNode(n model.Node) error {
	if n.ID == "" {
		return fmt.Errorf("add node: empty id")
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("add node: %s already present", n.ID)
	}
	cp := n.Clone()
	cp.ParentIDs = nil
	cp.ChildIDs = nil
	g.nodes[n.ID] = &cp
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// UpdateNode replaces the stored fields of an existing node, preserving its
// adjacency (ParentIDs/ChildIDs stay mirrored from the edge set).
func (g *Graph) UpdateNode(n model.Node) error {
	cur, ok := g.nodes[n.ID]
	if !ok {
		return fmt.Errorf("update node: %s not present", n.ID)
	}
	cp := n.Clone()
	cp.ParentIDs = cur.ParentIDs
	cp.ChildIDs = cur.ChildIDs
	*cur = cp
	return nil
}

// SetPosition moves a node without touching any other field.
func (g *Graph) SetPosition(id string, pos model.Position) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("set position: %s not present", id)
	}
	n.Position = pos
	return nil
}

// RemoveNode deletes a node and cascades removal of every incident edge.
// It returns the removed edges so callers can capture them for undo.
func (g *Graph) RemoveNode(id string) ([]model.Edge, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("remove node: %s not present", id)
	}
	removed := g.IncidentEdges(id)
	for _, e := range removed {
		g.removeEdge(e.ID)
	}
	delete(g.nodes, id)
	g.nodeOrder = removeString(g.nodeOrder, id)
	return removed, nil
}

// IncidentEdges returns every edge where id is source or target.
func (g *Graph) IncidentEdges(id string) []model.Edge {
	var out []model.Edge
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		if e.Source == id || e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// AddEdge links source→target. Re-linking an existing pair is a no-op.
// Both endpoints must be present.
func (g *Graph) AddEdge(source, target string) (model.Edge, error) {
	if _, ok := g.nodes[source]; !ok {
		return model.Edge{}, fmt.Errorf("add edge: source %s not present", source)
	}
	if _, ok := g.nodes[target]; !ok {
		return model.Edge{}, fmt.Errorf("add edge: target %s not present", target)
	}
	id := model.EdgeID(source, target)
	if e, ok := g.edges[id]; ok {
		return e, nil
	}
	e := model.NewEdge(source, target)
	g.edges[id] = e
	g.edgeOrder = append(g.edgeOrder, id)
	g.children[source] = append(g.children[source], target)
	g.parents[target] = append(g.parents[target], source)
	g.nodes[source].ChildIDs = append(g.nodes[source].ChildIDs, target)
	g.nodes[target].ParentIDs = append(g.nodes[target].ParentIDs, source)
	g.edgeGen++
	return e, nil
}

// RemoveEdge unlinks source→target. Removing an absent pair is an error so
// optimistic rollbacks can detect drift.
func (g *Graph) RemoveEdge(source, target string) error {
	id := model.EdgeID(source, target)
	if _, ok := g.edges[id]; !ok {
		return fmt.Errorf("remove edge: %s→%s not present", source, target)
	}
	g.removeEdge(id)
	return nil
}

func (g *Graph) removeEdge(id string) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edges, id)
	g.edgeOrder = removeString(g.edgeOrder, id)
	g.children[e.Source] = removeString(g.children[e.Source], e.Target)
	g.parents[e.Target] = removeString(g.parents[e.Target], e.Source)
	if n := g.nodes[e.Source]; n != nil {
		n.ChildIDs = removeString(n.ChildIDs, e.Target)
	}
	if n := g.nodes[e.Target]; n != nil {
		n.ParentIDs = removeString(n.ParentIDs, e.Source)
	}
	g.edgeGen++
}

// removeString deletes the first occurrence of v, preserving order.
func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

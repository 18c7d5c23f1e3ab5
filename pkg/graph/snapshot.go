package graph

import "github.com/pengraph/pengraph/pkg/model"

// Snapshot is an immutable copy of the graph with adjacency maps for O(1)
// neighbor lookup. Traversals and the presentation layer read snapshots, not
// the live graph, so a mid-walk mutation can never corrupt a traversal.
type Snapshot struct {
	nodes     map[string]model.Node
	nodeOrder []string
	edges     map[string]model.Edge
	edgeOrder []string
	children  map[string][]string
	parents   map[string][]string
	edgeGen   uint64
}

// Snapshot captures the current graph state.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		nodes:     make(map[string]model.Node, len(g.nodes)),
		nodeOrder: append([]string(nil), g.nodeOrder...),
		edges:     make(map[string]model.Edge, len(g.edges)),
		edgeOrder: append([]string(nil), g.edgeOrder...),
		children:  make(map[string][]string, len(g.children)),
		parents:   make(map[string][]string, len(g.parents)),
		edgeGen:   g.edgeGen,
	}
	for id, n := range g.nodes {
		s.nodes[id] = n.Clone()
	}
	for id, e := range g.edges {
		s.edges[id] = e
	}
	for id, kids := range g.children {
		if len(kids) > 0 {
			s.children[id] = append([]string(nil), kids...)
		}
	}
	for id, ps := range g.parents {
		if len(ps) > 0 {
			s.parents[id] = append([]string(nil), ps...)
		}
	}
	return s
}

// Node returns the snapshotted node and whether it exists.
func (s *Snapshot) Node(id string) (model.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Snapshot) Nodes() []model.Node {
	out := make([]model.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (s *Snapshot) Edges() []model.Edge {
	out := make([]model.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// EdgeGeneration identifies the edge-id set this snapshot was taken at.
func (s *Snapshot) EdgeGeneration() uint64 { return s.edgeGen }

// ParentsOf returns the direct parents of id, first recorded parent first.
func (s *Snapshot) ParentsOf(id string) []string { return s.parents[id] }

// ChildrenOf returns the direct children of id.
func (s *Snapshot) ChildrenOf(id string) []string { return s.children[id] }

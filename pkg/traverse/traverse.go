// Package traverse implements the two presentation traversals over graph
// snapshots: focus-mode lineage isolation and status-trail path tracing.
// Both are pure functions of an immutable snapshot; the View type layers
// the activation/deactivation state machine on top.
//
// The parent/child relation is intended to be acyclic, but both traversals
// carry visited sets so an accidentally cyclic graph degrades into a
// terminated walk instead of a hang.
package traverse

import (
	"github.com/pengraph/pengraph/pkg/graph"
	"github.com/pengraph/pengraph/pkg/metrics"
	"github.com/pengraph/pengraph/pkg/model"
)

// Highlight is a pair of id sets produced by a traversal.
type Highlight struct {
	Nodes map[string]bool
	Edges map[string]bool
}

func newHighlight() Highlight {
	return Highlight{
		Nodes: make(map[string]bool),
		Edges: make(map[string]bool),
	}
}

// HasNode reports whether the node id is in the highlight set.
func (h Highlight) HasNode(id string) bool { return h.Nodes[id] }

// HasEdge reports whether the edge id is in the highlight set.
func (h Highlight) HasEdge(id string) bool { return h.Edges[id] }

// Empty reports whether nothing is highlighted.
func (h Highlight) Empty() bool { return len(h.Nodes) == 0 && len(h.Edges) == 0 }

// FocusClosure computes the focus-mode closure for a node: the node itself,
// its direct children (exactly one level, not recursive), and every
// ancestor reached by repeatedly following parent links with no depth
// limit. Edges are highlighted only when both endpoints qualify.
//
// Returns an empty highlight when the node does not exist.
func FocusClosure(snap *graph.Snapshot, nodeID string) Highlight {
	defer metrics.Timer(metrics.FocusClosure)()

	h := newHighlight()
	if _, ok := snap.Node(nodeID); !ok {
		return h
	}

	h.Nodes[nodeID] = true
	for _, child := range snap.ChildrenOf(nodeID) {
		h.Nodes[child] = true
	}

	// Ancestor walk: BFS over parent links. The visited set doubles as the
	// cycle guard.
	visited := map[string]bool{nodeID: true}
	queue := append([]string(nil), snap.ParentsOf(nodeID)...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		h.Nodes[cur] = true
		queue = append(queue, snap.ParentsOf(cur)...)
	}

	for _, e := range snap.Edges() {
		if h.Nodes[e.Source] && h.Nodes[e.Target] {
			h.Edges[e.ID] = true
		}
	}
	return h
}

// TraceStatus computes the status trail for a target status: every node
// whose status matches, plus the upward path from each match toward the
// root, plus the parent→child edges traversed on the way.
//
// Tracing follows only the first recorded parent of each node, so a
// multi-parent node contributes a single path rather than fanning out over
// every ancestry.
//
// The walk stops at the root, or — when the target status is not
// NOT_STARTED — at the first ancestor whose status is NOT_STARTED; that
// blocking ancestor is included, nothing beyond it. A NOT_STARTED trail is
// never blocked and always reaches the root.
func TraceStatus(snap *graph.Snapshot, status model.Status) Highlight {
	defer metrics.Timer(metrics.StatusTrail)()

	h := newHighlight()
	blocking := status != model.StatusNotStarted

	visited := make(map[string]bool)
	for _, n := range snap.Nodes() {
		if n.Status != status {
			continue
		}
		h.Nodes[n.ID] = true
		traceUp(snap, n.ID, blocking, visited, &h)
	}
	return h
}

// traceUp walks from a match toward the root following first parents.
func traceUp(snap *graph.Snapshot, matchID string, blocking bool, visited map[string]bool, h *Highlight) {
	cur := matchID
	for {
		if visited[cur] {
			// Either a cycle or a path already traced from another match.
			return
		}
		visited[cur] = true

		parents := snap.ParentsOf(cur)
		if len(parents) == 0 {
			return
		}
		parent := parents[0]
		pn, ok := snap.Node(parent)
		if !ok {
			return
		}

		h.Nodes[parent] = true
		h.Edges[model.EdgeID(parent, cur)] = true

		if blocking && pn.Status == model.StatusNotStarted {
			// The blocking ancestor is included; nothing beyond it.
			return
		}
		cur = parent
	}
}

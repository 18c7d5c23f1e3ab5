package graph

import "github.com/pengraph/pengraph/pkg/model"

// Reconcile merges an authoritative remote snapshot into the live graph
// without discarding in-flight local state.
//
// Position ownership depends on whether the node set changed:
//
//   - If any node id was added or removed, the node list is rebuilt. Nodes
//     present on both sides keep their *local* position (a stale remote value
//     must never clobber an in-progress drag) while every other field is
//     refreshed from remote. Brand-new remote nodes use the remote position.
//   - If the node-id sets match, fields are updated in place and the remote
//     position is adopted: with no structural change it is authoritative
//     (e.g. after an auto-layout run performed elsewhere).
//
// The edge collection is rebuilt from remote links, but the held collection
// (and its generation) is replaced only when the edge-id set actually
// differs, so downstream consumers keyed on EdgeGeneration skip needless
// recomputation.
func (g *Graph) Reconcile(remoteNodes []model.Node, remoteLinks []model.Edge) {
	structural := g.nodeSetChanged(remoteNodes)
	if structural {
		g.rebuildNodes(remoteNodes)
	} else {
		for _, rn := range remoteNodes {
			cur := g.nodes[rn.ID]
			cp := rn.Clone()
			cp.ParentIDs = cur.ParentIDs
			cp.ChildIDs = cur.ChildIDs
			*cur = cp
		}
	}
	g.reconcileEdges(remoteLinks)
}

// nodeSetChanged reports whether the symmetric difference between the local
// and remote node-id sets is non-empty.
func (g *Graph) nodeSetChanged(remoteNodes []model.Node) bool {
	if len(remoteNodes) != len(g.nodes) {
		return true
	}
	for _, rn := range remoteNodes {
		if _, ok := g.nodes[rn.ID]; !ok {
			return true
		}
	}
	return false
}

func (g *Graph) rebuildNodes(remoteNodes []model.Node) {
	localPos := make(map[string]model.Position, len(g.nodes))
	for id, n := range g.nodes {
		localPos[id] = n.Position
	}

	g.nodes = make(map[string]*model.Node, len(remoteNodes))
	g.nodeOrder = g.nodeOrder[:0]
	for _, rn := range remoteNodes {
		cp := rn.Clone()
		cp.ParentIDs = nil
		cp.ChildIDs = nil
		if pos, ok := localPos[rn.ID]; ok {
			cp.Position = pos
		}
		g.nodes[rn.ID] = &cp
		g.nodeOrder = append(g.nodeOrder, rn.ID)
	}
}

func (g *Graph) reconcileEdges(remoteLinks []model.Edge) {
	desired := make(map[string]model.Edge, len(remoteLinks))
	var desiredOrder []string
	for _, l := range remoteLinks {
		if _, ok := g.nodes[l.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[l.Target]; !ok {
			continue
		}
		id := model.EdgeID(l.Source, l.Target)
		if _, dup := desired[id]; dup {
			continue
		}
		desired[id] = model.Edge{ID: id, Source: l.Source, Target: l.Target}
		desiredOrder = append(desiredOrder, id)
	}

	if !g.edgeSetChanged(desired) {
		// Same edge-id set: keep the held collection and generation, but the
		// adjacency mirrors may have been dropped by a node rebuild.
		g.rebuildAdjacency()
		return
	}

	g.edges = desired
	g.edgeOrder = desiredOrder
	g.edgeGen++
	g.rebuildAdjacency()
}

// edgeSetChanged compares edge-id sets order-insensitively.
func (g *Graph) edgeSetChanged(desired map[string]model.Edge) bool {
	if len(desired) != len(g.edges) {
		return true
	}
	for id := range desired {
		if _, ok := g.edges[id]; !ok {
			return true
		}
	}
	return false
}

// rebuildAdjacency rederives the adjacency indexes and the per-node
// ParentIDs/ChildIDs mirrors from the edge set.
func (g *Graph) rebuildAdjacency() {
	g.children = make(map[string][]string, len(g.nodes))
	g.parents = make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		n.ParentIDs = nil
		n.ChildIDs = nil
	}
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		g.children[e.Source] = append(g.children[e.Source], e.Target)
		g.parents[e.Target] = append(g.parents[e.Target], e.Source)
		g.nodes[e.Source].ChildIDs = append(g.nodes[e.Source].ChildIDs, e.Target)
		g.nodes[e.Target].ParentIDs = append(g.nodes[e.Target].ParentIDs, e.Source)
	}
}

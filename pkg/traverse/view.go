package traverse

import (
	"github.com/pengraph/pengraph/pkg/graph"
	"github.com/pengraph/pengraph/pkg/model"
)

// Presentation is what the render layer consumes: the working node/edge
// sets plus dim markers. Focus mode filters non-qualifying elements out of
// the working set entirely; the status trail keeps everything and dims the
// complement. Deactivation always rebuilds from the canonical snapshot, so
// "undim" is never the restoration mechanism.
type Presentation struct {
	Nodes  []model.Node
	Edges  []model.Edge
	Dimmed Highlight // elements present but de-emphasized
}

// View is the traversal state machine. At most one focus and one status
// trail can be active; focus wins when both are set because it changes the
// working set itself.
type View struct {
	snap    *graph.Snapshot
	focused string        // node id, "" when inactive
	trail   *model.Status // nil when inactive
}

// NewView creates a view over the given snapshot.
func NewView(snap *graph.Snapshot) *View {
	return &View{snap: snap}
}

// SetSnapshot swaps in a freshly reconciled snapshot. An active focus on a
// node that no longer exists is dropped; an active trail is recomputed
// lazily on Render.
func (v *View) SetSnapshot(snap *graph.Snapshot) {
	v.snap = snap
	if v.focused != "" {
		if _, ok := snap.Node(v.focused); !ok {
			v.focused = ""
		}
	}
}

// Focused returns the focused node id, or "" when focus is inactive.
func (v *View) Focused() string { return v.focused }

// ToggleFocus activates focus on the given node, or deactivates it when the
// node is already focused. Activating on an unknown node is ignored.
func (v *View) ToggleFocus(nodeID string) {
	if v.focused == nodeID {
		v.focused = ""
		return
	}
	if _, ok := v.snap.Node(nodeID); !ok {
		return
	}
	v.focused = nodeID
}

// ClearFocus deactivates focus mode.
func (v *View) ClearFocus() { v.focused = "" }

// TrailStatus returns the active trail status, or nil.
func (v *View) TrailStatus() *model.Status {
	if v.trail == nil {
		return nil
	}
	s := *v.trail
	return &s
}

// SetStatusTrail activates a trail for the given status, replacing any
// previously active one.
func (v *View) SetStatusTrail(status model.Status) {
	s := status
	v.trail = &s
}

// ClearStatusTrail cancels the active trail.
func (v *View) ClearStatusTrail() { v.trail = nil }

// Render derives the presentation from the current snapshot and traversal
// state. With nothing active it returns the complete canonical sets.
func (v *View) Render() Presentation {
	if v.focused != "" {
		return v.renderFocus()
	}
	if v.trail != nil {
		return v.renderTrail()
	}
	return Presentation{Nodes: v.snap.Nodes(), Edges: v.snap.Edges()}
}

// renderFocus removes everything outside the closure from the working set.
func (v *View) renderFocus() Presentation {
	h := FocusClosure(v.snap, v.focused)
	var p Presentation
	for _, n := range v.snap.Nodes() {
		if h.HasNode(n.ID) {
			p.Nodes = append(p.Nodes, n)
		}
	}
	for _, e := range v.snap.Edges() {
		if h.HasEdge(e.ID) {
			p.Edges = append(p.Edges, e)
		}
	}
	return p
}

// renderTrail keeps the full working set and dims the complement of the
// trail. When the trail matches nothing, nothing is dimmed: an all-dim
// canvas would read as a rendering failure, not an empty result.
func (v *View) renderTrail() Presentation {
	h := TraceStatus(v.snap, *v.trail)
	p := Presentation{
		Nodes:  v.snap.Nodes(),
		Edges:  v.snap.Edges(),
		Dimmed: newHighlight(),
	}
	if h.Empty() {
		return p
	}
	for _, n := range p.Nodes {
		if !h.HasNode(n.ID) {
			p.Dimmed.Nodes[n.ID] = true
		}
	}
	for _, e := range p.Edges {
		if !h.HasEdge(e.ID) {
			p.Dimmed.Edges[e.ID] = true
		}
	}
	return p
}

package traverse

import (
	"testing"

	"github.com/pengraph/pengraph/pkg/model"
)

func TestView_RenderInactive(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, [][2]string{{"a", "b"}}, nil)
	v := NewView(snap)

	p := v.Render()
	if len(p.Nodes) != 2 || len(p.Edges) != 1 {
		t.Errorf("expected full working set, got %d nodes / %d edges", len(p.Nodes), len(p.Edges))
	}
	if len(p.Dimmed.Nodes) != 0 {
		t.Errorf("expected nothing dimmed, got %v", p.Dimmed.Nodes)
	}
}

func TestView_FocusFiltersWorkingSet(t *testing.T) {
	snap := buildSnapshot(t,
		[]string{"R", "A", "B", "A1"},
		[][2]string{{"R", "A"}, {"R", "B"}, {"A", "A1"}},
		nil)
	v := NewView(snap)
	v.ToggleFocus("A")

	p := v.Render()
	if len(p.Nodes) != 3 {
		t.Fatalf("expected 3 nodes in focused set, got %d", len(p.Nodes))
	}
	for _, n := range p.Nodes {
		if n.ID == "B" {
			t.Error("B must be filtered out, not dimmed")
		}
	}
}

func TestView_ToggleFocusDeactivates(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, [][2]string{{"a", "b"}}, nil)
	v := NewView(snap)

	v.ToggleFocus("a")
	if v.Focused() != "a" {
		t.Fatalf("expected focus on a, got %q", v.Focused())
	}
	v.ToggleFocus("a")
	if v.Focused() != "" {
		t.Fatalf("expected focus cleared, got %q", v.Focused())
	}
	p := v.Render()
	if len(p.Nodes) != 2 {
		t.Errorf("expected full set restored, got %d nodes", len(p.Nodes))
	}
}

func TestView_ToggleFocusSwitchesNode(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, nil, nil)
	v := NewView(snap)

	v.ToggleFocus("a")
	v.ToggleFocus("b")
	if v.Focused() != "b" {
		t.Fatalf("expected focus moved to b, got %q", v.Focused())
	}
}

func TestView_FocusOnUnknownNodeIgnored(t *testing.T) {
	snap := buildSnapshot(t, []string{"a"}, nil, nil)
	v := NewView(snap)
	v.ToggleFocus("ghost")
	if v.Focused() != "" {
		t.Errorf("expected no focus, got %q", v.Focused())
	}
}

func TestView_SetSnapshotDropsVanishedFocus(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, nil, nil)
	v := NewView(snap)
	v.ToggleFocus("b")

	// b was deleted remotely; the reconciled snapshot no longer has it.
	v.SetSnapshot(buildSnapshot(t, []string{"a"}, nil, nil))
	if v.Focused() != "" {
		t.Errorf("expected focus dropped, got %q", v.Focused())
	}
	p := v.Render()
	if len(p.Nodes) != 1 {
		t.Errorf("expected full new set, got %d nodes", len(p.Nodes))
	}
}

func TestView_TrailDimsComplement(t *testing.T) {
	snap := buildSnapshot(t,
		[]string{"R", "N", "F", "other"},
		[][2]string{{"R", "N"}, {"N", "F"}, {"R", "other"}},
		map[string]model.Status{
			"R":     model.StatusInProgress,
			"N":     model.StatusInProgress,
			"F":     model.StatusFailed,
			"other": model.StatusSuccess,
		})
	v := NewView(snap)
	v.SetStatusTrail(model.StatusFailed)

	p := v.Render()
	// Trail keeps the full working set.
	if len(p.Nodes) != 4 {
		t.Fatalf("expected full working set, got %d nodes", len(p.Nodes))
	}
	if !p.Dimmed.HasNode("other") {
		t.Error("expected node outside the trail dimmed")
	}
	if p.Dimmed.HasNode("F") || p.Dimmed.HasNode("N") || p.Dimmed.HasNode("R") {
		t.Error("trail nodes must not be dimmed")
	}
	if !p.Dimmed.HasEdge(model.EdgeID("R", "other")) {
		t.Error("expected edge outside the trail dimmed")
	}
}

func TestView_EmptyTrailDimsNothing(t *testing.T) {
	snap := buildSnapshot(t, []string{"a", "b"}, [][2]string{{"a", "b"}}, nil)
	v := NewView(snap)
	v.SetStatusTrail(model.StatusFailed)

	p := v.Render()
	if len(p.Dimmed.Nodes) != 0 || len(p.Dimmed.Edges) != 0 {
		t.Errorf("expected nothing dimmed on empty trail, got %v / %v",
			p.Dimmed.Nodes, p.Dimmed.Edges)
	}
}

func TestView_FocusWinsOverTrail(t *testing.T) {
	snap := buildSnapshot(t,
		[]string{"R", "A", "B"},
		[][2]string{{"R", "A"}, {"R", "B"}},
		map[string]model.Status{"B": model.StatusFailed})
	v := NewView(snap)
	v.SetStatusTrail(model.StatusFailed)
	v.ToggleFocus("A")

	p := v.Render()
	// Focus filters; the trail's dim set does not apply.
	for _, n := range p.Nodes {
		if n.ID == "B" {
			t.Error("expected focus filtering, found B in working set")
		}
	}
	if len(p.Dimmed.Nodes) != 0 {
		t.Errorf("expected no dimming under focus, got %v", p.Dimmed.Nodes)
	}
}

func TestView_ClearStatusTrail(t *testing.T) {
	snap := buildSnapshot(t, []string{"a"}, nil,
		map[string]model.Status{"a": model.StatusFailed})
	v := NewView(snap)
	v.SetStatusTrail(model.StatusFailed)
	if v.TrailStatus() == nil {
		t.Fatal("expected active trail")
	}
	v.ClearStatusTrail()
	if v.TrailStatus() != nil {
		t.Fatal("expected trail cleared")
	}
	p := v.Render()
	if len(p.Dimmed.Nodes) != 0 {
		t.Errorf("expected nothing dimmed, got %v", p.Dimmed.Nodes)
	}
}

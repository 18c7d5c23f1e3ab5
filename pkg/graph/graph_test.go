package graph

import (
	"testing"

	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/testutil"
)

func node(id string) model.Node {
	return testutil.NewNode(id, model.StatusNotStarted)
}

func buildGraph(t *testing.T, ids []string, pairs [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		if err := g.AddNode(node(id)); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for _, p := range pairs {
		if _, err := g.AddEdge(p[0], p[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", p[0], p[1], err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	if err := g.AddNode(node("a")); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if !g.HasNode("a") {
		t.Error("expected node a to be present")
	}
	if g.NodeCount() != 1 {
		t.Errorf("expected 1 node, got %d", g.NodeCount())
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := New()
	if err := g.AddNode(node("a")); err != nil {
		t.Fatal(err)
	}
	if err := g.AddNode(node("a")); err == nil {
		t.Error("expected error for duplicate node id")
	}
}

func TestAddNode_EmptyID(t *testing.T) {
	g := New()
	if err := g.AddNode(model.Node{Title: "untitled"}); err == nil {
		t.Error("expected error for empty node id")
	}
}

func TestAddNode_ResetsAdjacencyMirrors(t *testing.T) {
	g := New()
	n := node("a")
	n.ParentIDs = []string{"ghost"}
	n.ChildIDs = []string{"phantom"}
	if err := g.AddNode(n); err != nil {
		t.Fatal(err)
	}
	got := g.Node("a")
	if len(got.ParentIDs) != 0 || len(got.ChildIDs) != 0 {
		t.Errorf("expected adjacency mirrors reset, got parents=%v children=%v",
			got.ParentIDs, got.ChildIDs)
	}
}

func TestAddEdge_MaintainsAdjacency(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	if !g.HasEdge("a", "b") {
		t.Fatal("expected edge a→b")
	}
	if got := g.ChildrenOf("a"); len(got) != 1 || got[0] != "b" {
		t.Errorf("ChildrenOf(a) = %v, want [b]", got)
	}
	if got := g.ParentsOf("b"); len(got) != 1 || got[0] != "a" {
		t.Errorf("ParentsOf(b) = %v, want [a]", got)
	}
	if got := g.Node("a").ChildIDs; len(got) != 1 || got[0] != "b" {
		t.Errorf("node a ChildIDs = %v, want [b]", got)
	}
	if got := g.Node("b").ParentIDs; len(got) != 1 || got[0] != "a" {
		t.Errorf("node b ParentIDs = %v, want [a]", got)
	}
}

func TestAddEdge_DuplicateIsNoOp(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	gen := g.EdgeGeneration()

	e, err := g.AddEdge("a", "b")
	if err != nil {
		t.Fatalf("re-adding edge: %v", err)
	}
	if e.ID != model.EdgeID("a", "b") {
		t.Errorf("expected existing edge returned, got %s", e.ID)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if g.EdgeGeneration() != gen {
		t.Error("duplicate link must not bump the edge generation")
	}
	if got := g.ParentsOf("b"); len(got) != 1 {
		t.Errorf("expected single parent entry, got %v", got)
	}
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	if _, err := g.AddEdge("a", "ghost"); err == nil {
		t.Error("expected error for missing target")
	}
	if _, err := g.AddEdge("ghost", "a"); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestRemoveEdge(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	gen := g.EdgeGeneration()

	if err := g.RemoveEdge("a", "b"); err != nil {
		t.Fatalf("RemoveEdge: %v", err)
	}
	if g.HasEdge("a", "b") {
		t.Error("expected edge removed")
	}
	if len(g.ChildrenOf("a")) != 0 || len(g.ParentsOf("b")) != 0 {
		t.Error("expected adjacency cleaned up")
	}
	if g.EdgeGeneration() == gen {
		t.Error("expected edge generation bump after removal")
	}
}

func TestRemoveEdge_Absent(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, nil)
	if err := g.RemoveEdge("a", "b"); err == nil {
		t.Error("expected error removing absent edge")
	}
}

func TestRemoveNode_CascadesIncidentEdges(t *testing.T) {
	// a → b → c plus a → c; removing b must drop exactly its two edges.
	g := buildGraph(t, []string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})

	removed, err := g.RemoveNode("b")
	if err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 cascaded edges, got %d", len(removed))
	}
	if g.HasNode("b") {
		t.Error("expected node b gone")
	}
	if !g.HasEdge("a", "c") {
		t.Error("unrelated edge a→c must survive")
	}
	if got := g.ParentsOf("c"); len(got) != 1 || got[0] != "a" {
		t.Errorf("ParentsOf(c) = %v, want [a]", got)
	}
}

func TestRemoveNode_Absent(t *testing.T) {
	g := New()
	if _, err := g.RemoveNode("ghost"); err == nil {
		t.Error("expected error removing absent node")
	}
}

func TestUpdateNode_PreservesAdjacency(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	updated := node("b")
	updated.Title = "renamed"
	updated.Status = model.StatusFailed
	if err := g.UpdateNode(updated); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	got := g.Node("b")
	if got.Title != "renamed" || got.Status != model.StatusFailed {
		t.Errorf("expected fields updated, got %+v", got)
	}
	if len(got.ParentIDs) != 1 || got.ParentIDs[0] != "a" {
		t.Errorf("expected adjacency preserved, got %v", got.ParentIDs)
	}
}

func TestSetPosition(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	pos := model.Position{X: 120, Y: -40}
	if err := g.SetPosition("a", pos); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if got := g.Node("a").Position; got != pos {
		t.Errorf("expected position %+v, got %+v", pos, got)
	}
	if err := g.SetPosition("ghost", pos); err == nil {
		t.Error("expected error for absent node")
	}
}

func TestIncidentEdges(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})

	edges := g.IncidentEdges("b")
	if len(edges) != 2 {
		t.Fatalf("expected 2 incident edges, got %d", len(edges))
	}
	edges = g.IncidentEdges("c")
	if len(edges) != 2 {
		t.Fatalf("expected 2 incident edges for c, got %d", len(edges))
	}
}

func TestNodesInsertionOrder(t *testing.T) {
	g := buildGraph(t, []string{"z", "a", "m"}, nil)
	got := g.Nodes()
	want := []string{"z", "a", "m"}
	for i, n := range got {
		if n.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], n.ID)
		}
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	snap := g.Snapshot()

	// Mutating the live graph must not leak into the snapshot.
	if _, err := g.RemoveNode("b"); err != nil {
		t.Fatal(err)
	}
	g.Node("a").Title = "mutated"

	if snap.NodeCount() != 2 || snap.EdgeCount() != 1 {
		t.Errorf("snapshot changed: %d nodes, %d edges", snap.NodeCount(), snap.EdgeCount())
	}
	n, ok := snap.Node("a")
	if !ok || n.Title == "mutated" {
		t.Error("snapshot node a should be insulated from live mutation")
	}
	if got := snap.ParentsOf("b"); len(got) != 1 || got[0] != "a" {
		t.Errorf("snapshot adjacency lost: ParentsOf(b) = %v", got)
	}
}

func TestSnapshot_CarriesEdgeGeneration(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})
	if got := g.Snapshot().EdgeGeneration(); got != g.EdgeGeneration() {
		t.Errorf("snapshot generation %d, graph %d", got, g.EdgeGeneration())
	}
}

package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
)

func TestChain(t *testing.T) {
	data := Chain(5)
	AssertNodeCount(t, data.Nodes, 5)
	AssertEdgeCount(t, data.Links, 4)
	AssertNoDuplicateIDs(t, data.Nodes)
	AssertAllValid(t, data.Nodes)
	AssertEdgeExists(t, data.Links, "n0", "n1")
	AssertEdgeExists(t, data.Links, "n3", "n4")
}

func TestStar(t *testing.T) {
	data := Star(4)
	AssertNodeCount(t, data.Nodes, 5)
	AssertEdgeCount(t, data.Links, 4)
	for _, l := range data.Links {
		if l.Source != "hub" {
			t.Errorf("expected all edges from hub, got %s→%s", l.Source, l.Target)
		}
	}
}

func TestDiamond(t *testing.T) {
	data := Diamond(2)
	AssertNodeCount(t, data.Nodes, 4)
	AssertEdgeCount(t, data.Links, 4)
	AssertEdgeExists(t, data.Links, "top", "mid1")
	AssertEdgeExists(t, data.Links, "mid2", "bottom")
}

func TestCycle(t *testing.T) {
	data := Cycle(3)
	AssertNodeCount(t, data.Nodes, 3)
	AssertEdgeCount(t, data.Links, 3)
	AssertEdgeExists(t, data.Links, "c2", "c0")
}

func TestTree(t *testing.T) {
	data := Tree(2)
	AssertNodeCount(t, data.Nodes, 7) // 1 + 2 + 4
	AssertEdgeCount(t, data.Links, 6)
	AssertEdgeExists(t, data.Links, "r", "r0")
	AssertEdgeExists(t, data.Links, "r1", "r10")
}

func TestFakeStore_CreateAndFetch(t *testing.T) {
	s := NewFakeStore()
	ctx := context.Background()

	n, err := s.CreateNode(ctx, "p1", model.NodeFields{Title: "recon"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if n.Status != model.StatusNotStarted {
		t.Errorf("expected default status, got %s", n.Status)
	}

	data, err := s.FetchGraph(ctx, "p1")
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	AssertNodeCount(t, data.Nodes, 1)
}

func TestFakeStore_DeleteCascadesLinks(t *testing.T) {
	s := NewFakeStore()
	s.Seed(Chain(3))
	ctx := context.Background()

	if err := s.DeleteNode(ctx, "p1", "n1"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	data, _ := s.FetchGraph(ctx, "p1")
	AssertNodeCount(t, data.Nodes, 2)
	AssertEdgeCount(t, data.Links, 0)
}

func TestFakeStore_ScriptedFailure(t *testing.T) {
	s := NewFakeStore()
	s.Seed(Chain(2))
	boom := errors.New("boom")
	s.FailLink = boom

	err := s.LinkNodes(context.Background(), "p1", "n1", "n0")
	if !errors.Is(err, boom) {
		t.Fatalf("expected scripted failure, got %v", err)
	}
	if s.CallCount("LinkNodes") != 1 {
		t.Errorf("expected 1 LinkNodes call, got %d", s.CallCount("LinkNodes"))
	}
}

func TestFakeStore_DuplicateSemantics(t *testing.T) {
	s := NewFakeStore()
	s.Seed(remote.GraphData{Nodes: []model.Node{{
		ID: "a", Title: "scan", Status: model.StatusSuccess,
		Position: model.Position{X: 10, Y: 20},
	}}})

	dup, err := s.DuplicateNode(context.Background(), "p1", "a")
	if err != nil {
		t.Fatalf("DuplicateNode: %v", err)
	}
	if dup.Title != "scan (Copy)" {
		t.Errorf("expected copy title, got %q", dup.Title)
	}
	if dup.Position.X != 60 || dup.Position.Y != 70 {
		t.Errorf("expected offset position, got %+v", dup.Position)
	}
	if dup.ID == "a" {
		t.Error("expected a fresh id for the duplicate")
	}
}

func TestFakeStore_NotFound(t *testing.T) {
	s := NewFakeStore()
	if err := s.DeleteNode(context.Background(), "p1", "ghost"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

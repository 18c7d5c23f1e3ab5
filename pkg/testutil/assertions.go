package testutil

import (
	"testing"

	"github.com/pengraph/pengraph/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, nodes []model.Node, expected int) {
	t.Helper()
	if len(nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(nodes))
	}
}

// AssertEdgeCount verifies the expected number of edges.
func AssertEdgeCount(t *testing.T, edges []model.Edge, expected int) {
	t.Helper()
	if len(edges) != expected {
		t.Errorf("expected %d edges, got %d", expected, len(edges))
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, nodes []model.Node) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertAllValid verifies all nodes pass validation.
func AssertAllValid(t *testing.T, nodes []model.Node) {
	t.Helper()
	for i, n := range nodes {
		if err := n.Validate(); err != nil {
			t.Errorf("node %d (%s) invalid: %v", i, n.ID, err)
		}
	}
}

// AssertEdgeExists verifies that a source→target edge is present.
func AssertEdgeExists(t *testing.T, edges []model.Edge, sourceID, targetID string) {
	t.Helper()
	for _, e := range edges {
		if e.Source == sourceID && e.Target == targetID {
			return
		}
	}
	t.Errorf("expected edge %s→%s not found", sourceID, targetID)
}

// AssertEdgeAbsent verifies that no source→target edge is present.
func AssertEdgeAbsent(t *testing.T, edges []model.Edge, sourceID, targetID string) {
	t.Helper()
	for _, e := range edges {
		if e.Source == sourceID && e.Target == targetID {
			t.Errorf("unexpected edge %s→%s", sourceID, targetID)
			return
		}
	}
}

// AssertNodeStatus verifies the status of a node by id.
func AssertNodeStatus(t *testing.T, nodes []model.Node, id string, want model.Status) {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			if n.Status != want {
				t.Errorf("node %s: expected status %s, got %s", id, want, n.Status)
			}
			return
		}
	}
	t.Errorf("node %s not found", id)
}

// AssertHasNode verifies that a node id is present.
func AssertHasNode(t *testing.T, nodes []model.Node, id string) {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return
		}
	}
	t.Errorf("expected node %s not found", id)
}

// AssertNoNode verifies that a node id is absent.
func AssertNoNode(t *testing.T, nodes []model.Node, id string) {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			t.Errorf("unexpected node %s", id)
			return
		}
	}
}

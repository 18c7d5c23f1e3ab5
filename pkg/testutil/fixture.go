// Package testutil provides test fixture generators for various graph
// topologies, assertions over node and edge sets, and an in-memory Store
// fake with scriptable failures. All generators produce deterministic
// output for reproducible tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
)

// FixtureTime is the creation timestamp stamped on generated nodes.
var FixtureTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// NewNode builds a node with the given id and status at a deterministic
// position derived from the id order it was created in.
func NewNode(id string, status model.Status) model.Node {
	return model.Node{
		ID:        id,
		Title:     "node " + id,
		Status:    status,
		CreatedAt: FixtureTime,
		UpdatedAt: FixtureTime,
	}
}

// Graph assembles GraphData from node ids and parent→child pairs. All
// nodes start NOT_STARTED; adjust statuses on the result as needed.
func Graph(nodeIDs []string, pairs [][2]string) remote.GraphData {
	data := remote.GraphData{}
	for _, id := range nodeIDs {
		data.Nodes = append(data.Nodes, NewNode(id, model.StatusNotStarted))
	}
	for _, p := range pairs {
		data.Links = append(data.Links, model.NewEdge(p[0], p[1]))
	}
	return data
}

// Chain creates a linear chain: n0 → n1 → ... → n{size-1}.
// n0 is the root, n{size-1} the sole leaf.
func Chain(size int) remote.GraphData {
	ids := make([]string, size)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	pairs := make([][2]string, 0, size-1)
	for i := 1; i < size; i++ {
		pairs = append(pairs, [2]string{ids[i-1], ids[i]})
	}
	return Graph(ids, pairs)
}

// Star creates a hub with the given number of children.
func Star(children int) remote.GraphData {
	ids := []string{"hub"}
	pairs := make([][2]string, 0, children)
	for i := 1; i <= children; i++ {
		id := fmt.Sprintf("child%d", i)
		ids = append(ids, id)
		pairs = append(pairs, [2]string{"hub", id})
	}
	return Graph(ids, pairs)
}

// Diamond creates top → {mid1..midN} → bottom. The bottom node has N
// parents, which exercises multi-parent traversal.
func Diamond(width int) remote.GraphData {
	if width < 1 {
		width = 1
	}
	ids := []string{"top"}
	pairs := make([][2]string, 0, width*2)
	for i := 1; i <= width; i++ {
		id := fmt.Sprintf("mid%d", i)
		ids = append(ids, id)
		pairs = append(pairs, [2]string{"top", id}, [2]string{id, "bottom"})
	}
	ids = append(ids, "bottom")
	return Graph(ids, pairs)
}

// Cycle creates a directed cycle c0 → c1 → ... → c0. Traversals must
// terminate on it.
func Cycle(size int) remote.GraphData {
	ids := make([]string, size)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%d", i)
	}
	pairs := make([][2]string, 0, size)
	for i := range ids {
		pairs = append(pairs, [2]string{ids[i], ids[(i+1)%size]})
	}
	return Graph(ids, pairs)
}

// Tree creates a complete binary tree with the given depth. Node ids
// encode the path from the root: "r", "r0", "r1", "r00", ...
func Tree(depth int) remote.GraphData {
	ids := []string{"r"}
	var pairs [][2]string
	level := []string{"r"}
	for d := 0; d < depth; d++ {
		var next []string
		for _, parent := range level {
			for _, suffix := range []string{"0", "1"} {
				child := parent + suffix
				ids = append(ids, child)
				pairs = append(pairs, [2]string{parent, child})
				next = append(next, child)
			}
		}
		level = next
	}
	return Graph(ids, pairs)
}

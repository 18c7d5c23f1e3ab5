// Package analysis runs structural checks over graph snapshots. The
// parent/child relation is intended to be a DAG; edits and imports can
// accidentally violate that, and the traversal engine only survives cycles
// defensively. This package makes the violation visible so the operator can
// repair it.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	pgraph "github.com/pengraph/pengraph/pkg/graph"
	"github.com/pengraph/pengraph/pkg/metrics"
)

// DefaultMaxCycles bounds the number of reported cycles.
const DefaultMaxCycles = 10

// CycleWarning describes one detected cycle.
type CycleWarning struct {
	// Path lists the node ids forming the cycle, starting at the
	// lexicographically smallest member for determinism. The closing hop
	// back to Path[0] is implied.
	Path []string
}

// String renders the cycle as "a → b → c → a".
func (w CycleWarning) String() string {
	if len(w.Path) == 0 {
		return ""
	}
	return strings.Join(w.Path, " → ") + " → " + w.Path[0]
}

// DetectCycles finds strongly connected components with more than one
// member, plus self-loops, and reports up to maxCycles of them. A nil
// result means the graph is a DAG.
func DetectCycles(snap *pgraph.Snapshot, maxCycles int) []CycleWarning {
	defer metrics.Timer(metrics.CycleDetection)()

	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}

	nodes := snap.Nodes()
	if len(nodes) == 0 {
		return nil
	}

	// gonum graphs address nodes by int64; keep both directions of the
	// mapping like every analyzer over external string ids must.
	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(nodes))
	nodeToID := make(map[int64]string, len(nodes))
	for _, n := range nodes {
		gn := g.NewNode()
		g.AddNode(gn)
		idToNode[n.ID] = gn.ID()
		nodeToID[gn.ID()] = n.ID
	}

	var selfLoops []string
	for _, e := range snap.Edges() {
		if e.Source == e.Target {
			// simple.DirectedGraph rejects self-edges; track them apart.
			selfLoops = append(selfLoops, e.Source)
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(idToNode[e.Source]), g.Node(idToNode[e.Target])))
	}

	var warnings []CycleWarning
	sort.Strings(selfLoops)
	for _, id := range selfLoops {
		if len(warnings) >= maxCycles {
			return warnings
		}
		warnings = append(warnings, CycleWarning{Path: []string{id}})
	}

	sccs := topo.TarjanSCC(g)
	var cyclic [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, nodeToID[n.ID()])
		}
		cyclic = append(cyclic, canonicalCycle(ids))
	}

	// Deterministic report order regardless of SCC discovery order.
	sort.Slice(cyclic, func(i, j int) bool { return cyclic[i][0] < cyclic[j][0] })
	for _, path := range cyclic {
		if len(warnings) >= maxCycles {
			break
		}
		warnings = append(warnings, CycleWarning{Path: path})
	}
	return warnings
}

// canonicalCycle rotates the member list to start at the smallest id.
func canonicalCycle(ids []string) []string {
	min := 0
	for i, id := range ids {
		if id < ids[min] {
			min = i
		}
	}
	return append(append([]string(nil), ids[min:]...), ids[:min]...)
}

// Summary is a one-line report suitable for CLI output.
func Summary(warnings []CycleWarning) string {
	if len(warnings) == 0 {
		return "no cycles detected"
	}
	return fmt.Sprintf("%d cycle(s) detected; first: %s", len(warnings), warnings[0].String())
}

// Package model defines the canonical data types for a pengraph project:
// nodes, directed parent→child edges, and the sub-entities (commands,
// findings) attached to nodes. The types here are pure data; all structural
// mutation goes through pkg/graph and pkg/editor.
package model

import (
	"fmt"
	"time"
)

// Status is the assessment state of a node.
type Status string

const (
	StatusNotStarted    Status = "NOT_STARTED"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusSuccess       Status = "SUCCESS"
	StatusFailed        Status = "FAILED"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// AllStatuses lists every valid status, in workflow order.
var AllStatuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusSuccess,
	StatusFailed,
	StatusNotApplicable,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusSuccess, StatusFailed, StatusNotApplicable:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// Position is a node's placement on the canvas. The editor treats it as
// opaque; only the reconciler has rules about which side (local or remote)
// owns it at any given moment.
type Position struct {
	X float64 `json:"x_pos"`
	Y float64 `json:"y_pos"`
}

// Command is an executable snippet attached to a node.
type Command struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// Finding is evidence recorded against a node.
type Finding struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// Node is a unit of assessment content. ParentIDs and ChildIDs mirror the
// edge set: they are maintained by pkg/graph and must never be mutated
// directly by callers.
type Node struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Position    Position  `json:"position"`
	ParentIDs   []string  `json:"parents,omitempty"`
	ChildIDs    []string  `json:"children,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Commands    []Command `json:"commands,omitempty"`
	Finding     *Finding  `json:"finding,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Validate checks the fields a node must carry before it can be persisted.
func (n Node) Validate() error {
	if n.Title == "" {
		return fmt.Errorf("node %s: title is required", n.ID)
	}
	if n.Status != "" && !n.Status.Valid() {
		return fmt.Errorf("node %s: invalid status %q", n.ID, n.Status)
	}
	return nil
}

// Clone returns a deep copy of the node. Snapshots rely on this to isolate
// traversals from concurrent edits.
func (n Node) Clone() Node {
	cp := n
	cp.ParentIDs = append([]string(nil), n.ParentIDs...)
	cp.ChildIDs = append([]string(nil), n.ChildIDs...)
	cp.Tags = append([]string(nil), n.Tags...)
	cp.Commands = append([]Command(nil), n.Commands...)
	if n.Finding != nil {
		f := *n.Finding
		cp.Finding = &f
	}
	return cp
}

// HasParent reports whether id is recorded as a parent of the node.
func (n Node) HasParent(id string) bool {
	for _, p := range n.ParentIDs {
		if p == id {
			return true
		}
	}
	return false
}

// HasChild reports whether id is recorded as a child of the node.
func (n Node) HasChild(id string) bool {
	for _, c := range n.ChildIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Edge is a directed parent→child relation. Its ID is derived from the
// endpoint pair, which guarantees at most one edge per ordered pair.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID derives the deterministic identifier for a source→target edge.
func EdgeID(source, target string) string {
	return "edge-" + source + "-" + target
}

// NewEdge builds an edge with its derived ID.
func NewEdge(source, target string) Edge {
	return Edge{ID: EdgeID(source, target), Source: source, Target: target}
}

// NodeFields carries the caller-supplied fields for node creation. The
// server assigns the ID.
type NodeFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Position    Position `json:"position"`
}

// Validate checks the required creation fields.
func (f NodeFields) Validate() error {
	if f.Title == "" {
		return fmt.Errorf("title is required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid status %q", f.Status)
	}
	return nil
}

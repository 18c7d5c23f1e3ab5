package editor

import (
	"github.com/pengraph/pengraph/pkg/model"
)

// UndoAction is an inverse-capable descriptor of a confirmed mutation. One
// variant exists per undoable operation; move and duplicate are deliberately
// not undoable.
type UndoAction interface {
	// Kind names the action for logging and tests.
	Kind() string
}

// NodeCreateAction inverts a node creation: undoing deletes the node.
type NodeCreateAction struct {
	NodeID string
}

// NodeDeleteAction inverts a node deletion. The snapshot carries everything
// needed to recreate the node (under a fresh server id) and the edges that
// were cascaded away with it.
type NodeDeleteAction struct {
	Node  model.Node
	Edges []model.Edge
}

// EdgeLinkAction inverts a link: undoing unlinks the pair.
type EdgeLinkAction struct {
	Edge model.Edge
}

// EdgeUnlinkAction inverts an unlink: undoing re-links the pair.
type EdgeUnlinkAction struct {
	Edge model.Edge
}

func (a NodeCreateAction) Kind() string { return "node-create" }
func (a NodeDeleteAction) Kind() string { return "node-delete" }
func (a EdgeLinkAction) Kind() string   { return "edge-link" }
func (a EdgeUnlinkAction) Kind() string { return "edge-unlink" }

// UndoStack is an unbounded LIFO history of confirmed mutations. There is no
// redo: undone actions are gone. A failed undo pushes its action back so the
// history is never silently lost.
type UndoStack struct {
	actions []UndoAction
}

// Push appends an action.
func (s *UndoStack) Push(a UndoAction) {
	s.actions = append(s.actions, a)
}

// Pop removes and returns the most recent action, or nil when empty.
func (s *UndoStack) Pop() UndoAction {
	if len(s.actions) == 0 {
		return nil
	}
	a := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	return a
}

// Peek returns the most recent action without removing it, or nil.
func (s *UndoStack) Peek() UndoAction {
	if len(s.actions) == 0 {
		return nil
	}
	return s.actions[len(s.actions)-1]
}

// Len returns the number of recorded actions.
func (s *UndoStack) Len() int {
	return len(s.actions)
}

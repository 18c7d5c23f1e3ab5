// Package editor implements the mutation and synchronization engine: every
// structural change to the graph flows through an Editor, which coordinates
// the in-memory model, the remote store, the undo history and the per-node
// move debouncing.
//
// Each operation carries its own consistency policy:
//
//	create/delete/duplicate — confirm-then-apply: the local graph changes
//	    only after the remote accepts, so these can never leave it
//	    half-applied.
//	link/unlink — optimistic: the local graph changes immediately and the
//	    remote call settles in the background; failure rolls the local
//	    change back and surfaces a notification.
//	move — immediate locally, persisted through a per-node debounce window;
//	    a persist failure triggers a corrective full re-fetch.
//
// Mutations are serialized by a mutex rather than a single goroutine,
// because debounce timers, background settlements and change notifications
// all arrive on their own goroutines.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pengraph/pengraph/pkg/debug"
	"github.com/pengraph/pengraph/pkg/graph"
	"github.com/pengraph/pengraph/pkg/metrics"
	"github.com/pengraph/pengraph/pkg/model"
	"github.com/pengraph/pengraph/pkg/remote"
	"github.com/pengraph/pengraph/pkg/watcher"
)

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("editor closed")

// ErrNothingToUndo is returned by Undo on an empty history.
var ErrNothingToUndo = errors.New("nothing to undo")

// Notify receives user-facing, non-blocking error notifications from
// background settlements (optimistic rollbacks, failed position persists).
type Notify func(err error)

// Option configures an Editor.
type Option func(*Editor)

// WithMoveDebounce overrides the position-persist window.
func WithMoveDebounce(d time.Duration) Option {
	return func(e *Editor) { e.moveDebounce = d }
}

// WithNotify sets the notification sink for background failures.
func WithNotify(fn Notify) Option {
	return func(e *Editor) { e.notify = fn }
}

// Editor owns the live graph for one project and mutates it in lockstep
// with a remote store.
type Editor struct {
	projectID string
	store     remote.Store
	notify    Notify

	mu    sync.Mutex
	graph *graph.Graph
	undo  UndoStack

	moveDebounce time.Duration
	movers       map[string]*watcher.Debouncer // per node id; timers are independent
	pendingMove  map[string]model.Position     // latest coordinates per node id

	journal Journal

	// ctx is cancelled by Close. In-flight continuations check it before
	// applying, so a response that arrives after Close mutates nothing.
	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

// New creates an editor for the given project backed by the given store.
func New(projectID string, store remote.Store, opts ...Option) *Editor {
	e := &Editor{
		projectID:    projectID,
		store:        store,
		notify:       func(error) {},
		graph:        graph.New(),
		moveDebounce: watcher.DefaultDebounceDuration,
		movers:       make(map[string]*watcher.Debouncer),
		pendingMove:  make(map[string]model.Position),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close cancels in-flight work. Pending debounced moves are dropped; the
// remote copy self-corrects on the next fetch.
func (e *Editor) Close() {
	e.cancel()
	e.mu.Lock()
	for _, d := range e.movers {
		d.Cancel()
	}
	e.mu.Unlock()
	e.bg.Wait()
}

// Settle blocks until background settlements (optimistic remote calls,
// fired debounce persists) have finished. Intended for tests and shutdown.
func (e *Editor) Settle() {
	e.bg.Wait()
}

// ProjectID returns the project this editor operates on.
func (e *Editor) ProjectID() string { return e.projectID }

// Nodes returns the current node list.
func (e *Editor) Nodes() []model.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Nodes()
}

// Edges returns the current edge list.
func (e *Editor) Edges() []model.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Edges()
}

// Node returns a copy of the node with the given id.
func (e *Editor) Node(id string) (model.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.graph.Node(id); n != nil {
		return n.Clone(), true
	}
	return model.Node{}, false
}

// Snapshot captures the current graph for traversal and presentation.
func (e *Editor) Snapshot() *graph.Snapshot {
	defer metrics.Timer(metrics.SnapshotBuild)()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Snapshot()
}

// UndoDepth returns the number of undoable actions.
func (e *Editor) UndoDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.undo.Len()
}

// Journal exposes the mutation journal for diagnostics.
func (e *Editor) Journal() *Journal { return &e.journal }

// Refresh fetches the authoritative remote state and reconciles it into the
// local graph. Called at initial load, on change notifications, and as the
// corrective path after a failed position persist.
func (e *Editor) Refresh(ctx context.Context) error {
	data, err := e.store.FetchGraph(ctx, e.projectID)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	defer metrics.Timer(metrics.Reconcile)()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph.Reconcile(data.Nodes, data.Links)
	debug.Log("reconciled: %d nodes, %d edges", e.graph.NodeCount(), e.graph.EdgeCount())
	return nil
}

// AddNode creates a node remotely and applies it locally once the server
// confirms and assigns an id. On failure no local mutation has happened.
func (e *Editor) AddNode(ctx context.Context, fields model.NodeFields) (model.Node, error) {
	if err := e.ctx.Err(); err != nil {
		return model.Node{}, ErrClosed
	}
	rec := e.journal.begin("create", fields.Title)

	created, err := e.store.CreateNode(ctx, e.projectID, fields)
	if err != nil {
		e.journal.rollback(rec, err)
		return model.Node{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.AddNode(created); err != nil {
		// The remote accepted but the id collides locally; reconciliation
		// will repair the divergence on the next refresh.
		e.journal.rollback(rec, err)
		return model.Node{}, err
	}
	e.undo.Push(NodeCreateAction{NodeID: created.ID})
	e.journal.commit(rec)
	return created, nil
}

// DeleteNode deletes a node remotely and, once confirmed, removes it and
// all incident edges locally.
func (e *Editor) DeleteNode(ctx context.Context, nodeID string) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}
	rec := e.journal.begin("delete", nodeID)

	// Capture the snapshot before anything changes so undo can rebuild the
	// node and its edges.
	e.mu.Lock()
	n := e.graph.Node(nodeID)
	if n == nil {
		e.mu.Unlock()
		e.journal.rollback(rec, remote.ErrNotFound)
		return fmt.Errorf("delete node %s: %w", nodeID, remote.ErrNotFound)
	}
	snapshot := n.Clone()
	edges := e.graph.IncidentEdges(nodeID)
	e.mu.Unlock()

	if err := e.store.DeleteNode(ctx, e.projectID, nodeID); err != nil {
		e.journal.rollback(rec, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.graph.RemoveNode(nodeID); err != nil {
		e.journal.rollback(rec, err)
		return err
	}
	e.undo.Push(NodeDeleteAction{Node: snapshot, Edges: edges})
	e.journal.commit(rec)
	return nil
}

// LinkNodes records a parent→child relation optimistically: the edge
// appears locally at once and the remote call settles in the background.
// If the remote rejects it, the edge is removed again and the notification
// sink is told. Linking an already-linked pair is a no-op.
func (e *Editor) LinkNodes(sourceID, targetID string) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}

	e.mu.Lock()
	if e.graph.HasEdge(sourceID, targetID) {
		e.mu.Unlock()
		return nil
	}
	edge, err := e.graph.AddEdge(sourceID, targetID)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	rec := e.journal.begin("link", sourceID+"→"+targetID)

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		err := e.store.LinkNodes(e.ctx, e.projectID, sourceID, targetID)

		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			// Roll back the optimistic edge unless something else already
			// removed it.
			if e.graph.HasEdge(sourceID, targetID) {
				_ = e.graph.RemoveEdge(sourceID, targetID)
			}
			e.journal.rollback(rec, err)
			e.notify(fmt.Errorf("link failed: %w", err))
			return
		}
		if e.ctx.Err() != nil {
			// Confirmed after Close: the remote applied it, so the record
			// still commits, but nothing is pushed onto a closed editor's
			// undo history.
			e.journal.commit(rec)
			return
		}
		e.undo.Push(EdgeLinkAction{Edge: edge})
		e.journal.commit(rec)
	}()
	return nil
}

// UnlinkNodes removes a relation optimistically; on remote failure the edge
// is re-inserted.
func (e *Editor) UnlinkNodes(sourceID, targetID string) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}

	e.mu.Lock()
	edge, ok := e.graph.Edge(model.EdgeID(sourceID, targetID))
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unlink %s→%s: no such edge", sourceID, targetID)
	}
	if err := e.graph.RemoveEdge(sourceID, targetID); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()
	rec := e.journal.begin("unlink", sourceID+"→"+targetID)

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		err := e.store.UnlinkNodes(e.ctx, e.projectID, sourceID, targetID)

		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			// Re-insert the optimistically removed edge if its endpoints
			// still exist.
			if e.graph.HasNode(edge.Source) && e.graph.HasNode(edge.Target) {
				_, _ = e.graph.AddEdge(edge.Source, edge.Target)
			}
			e.journal.rollback(rec, err)
			e.notify(fmt.Errorf("unlink failed: %w", err))
			return
		}
		if e.ctx.Err() != nil {
			e.journal.commit(rec)
			return
		}
		e.undo.Push(EdgeUnlinkAction{Edge: edge})
		e.journal.commit(rec)
	}()
	return nil
}

// MoveNode applies the position locally at once and schedules a debounced
// persist. Rapid moves of the same node within the window coalesce into one
// remote call carrying the final coordinates; different nodes debounce
// independently. A failed persist surfaces an error and triggers a full
// corrective refresh, because by then the local position may have drifted
// further.
func (e *Editor) MoveNode(nodeID string, pos model.Position) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}

	e.mu.Lock()
	if err := e.graph.SetPosition(nodeID, pos); err != nil {
		e.mu.Unlock()
		return err
	}
	e.pendingMove[nodeID] = pos
	d, ok := e.movers[nodeID]
	if !ok {
		d = watcher.NewDebouncer(e.moveDebounce)
		e.movers[nodeID] = d
	}
	e.mu.Unlock()

	d.Trigger(func() { e.persistMove(nodeID) })
	return nil
}

func (e *Editor) persistMove(nodeID string) {
	e.mu.Lock()
	pos, ok := e.pendingMove[nodeID]
	if ok {
		delete(e.pendingMove, nodeID)
	}
	e.mu.Unlock()
	if !ok || e.ctx.Err() != nil {
		return
	}
	rec := e.journal.begin("move", nodeID)

	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		if err := e.store.UpdateNodePosition(e.ctx, e.projectID, nodeID, pos); err != nil {
			e.journal.rollback(rec, err)
			e.notify(fmt.Errorf("position persist failed: %w", err))
			// Corrective re-fetch: adopt the authoritative state rather
			// than guessing which local positions are stale.
			if e.ctx.Err() == nil {
				if rerr := e.Refresh(e.ctx); rerr != nil {
					e.notify(fmt.Errorf("corrective refresh failed: %w", rerr))
				}
			}
			return
		}
		e.journal.commit(rec)
	}()
}

// DuplicateNode asks the remote for a deep copy (commands, findings and
// tags included) and applies the returned node locally. Duplication is
// intentionally not undoable: the copy is an ordinary node, so deleting it
// is always available and unambiguous.
func (e *Editor) DuplicateNode(ctx context.Context, nodeID string) (model.Node, error) {
	if err := e.ctx.Err(); err != nil {
		return model.Node{}, ErrClosed
	}
	rec := e.journal.begin("duplicate", nodeID)

	dup, err := e.store.DuplicateNode(ctx, e.projectID, nodeID)
	if err != nil {
		e.journal.rollback(rec, err)
		return model.Node{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.graph.AddNode(dup); err != nil {
		e.journal.rollback(rec, err)
		return model.Node{}, err
	}
	e.journal.commit(rec)
	return dup, nil
}

// BulkDeleteNodes deletes the given nodes best-effort: independent remote
// calls run concurrently, successes apply locally (each pushing its own
// undo action), and failures are reported per node id in one joined error.
// Succeeded deletions are not rolled back when siblings fail.
func (e *Editor) BulkDeleteNodes(ctx context.Context, nodeIDs []string) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	var errMu sync.Mutex
	var failures []error

	for _, id := range nodeIDs {
		g.Go(func() error {
			if err := e.DeleteNode(ctx, id); err != nil {
				errMu.Lock()
				failures = append(failures, fmt.Errorf("node %s: %w", id, err))
				errMu.Unlock()
			}
			// Always nil: one failed deletion must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return fmt.Errorf("bulk delete: %d of %d failed: %w",
			len(failures), len(nodeIDs), errors.Join(failures...))
	}
	return nil
}

// Undo pops the most recent action and replays its inverse against the
// remote and the local graph. If the inverse remote call fails, the action
// is pushed back and the error returned; repeated undo attempts are
// therefore not idempotent.
func (e *Editor) Undo(ctx context.Context) error {
	if err := e.ctx.Err(); err != nil {
		return ErrClosed
	}

	e.mu.Lock()
	action := e.undo.Pop()
	e.mu.Unlock()
	if action == nil {
		return ErrNothingToUndo
	}
	rec := e.journal.begin("undo", action.Kind())

	var err error
	switch a := action.(type) {
	case NodeCreateAction:
		err = e.undoNodeCreate(ctx, a)
	case NodeDeleteAction:
		err = e.undoNodeDelete(ctx, a)
	case EdgeLinkAction:
		err = e.undoEdgeLink(ctx, a)
	case EdgeUnlinkAction:
		err = e.undoEdgeUnlink(ctx, a)
	default:
		err = fmt.Errorf("unknown undo action %T", action)
	}

	if err != nil {
		e.mu.Lock()
		e.undo.Push(action)
		e.mu.Unlock()
		e.journal.rollback(rec, err)
		return fmt.Errorf("undo %s: %w", action.Kind(), err)
	}
	e.journal.commit(rec)
	return nil
}

// undoNodeCreate deletes the created node; the graph cascades incident
// edges locally and the server cascades them remotely.
func (e *Editor) undoNodeCreate(ctx context.Context, a NodeCreateAction) error {
	if err := e.store.DeleteNode(ctx, e.projectID, a.NodeID); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph.HasNode(a.NodeID) {
		_, _ = e.graph.RemoveNode(a.NodeID)
	}
	return nil
}

// undoNodeDelete recreates the node from its snapshot — the server assigns
// a new id — and re-links every captured edge with the new id substituted
// wherever the old id appeared.
func (e *Editor) undoNodeDelete(ctx context.Context, a NodeDeleteAction) error {
	created, err := e.store.CreateNode(ctx, e.projectID, model.NodeFields{
		Title:       a.Node.Title,
		Description: a.Node.Description,
		Status:      a.Node.Status,
		Position:    a.Node.Position,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	if err := e.graph.AddNode(created); err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	for _, old := range a.Edges {
		src, dst := old.Source, old.Target
		if src == a.Node.ID {
			src = created.ID
		}
		if dst == a.Node.ID {
			dst = created.ID
		}
		if err := e.store.LinkNodes(ctx, e.projectID, src, dst); err != nil {
			return fmt.Errorf("relink %s→%s: %w", src, dst, err)
		}
		e.mu.Lock()
		if e.graph.HasNode(src) && e.graph.HasNode(dst) {
			_, _ = e.graph.AddEdge(src, dst)
		}
		e.mu.Unlock()
	}
	return nil
}

func (e *Editor) undoEdgeLink(ctx context.Context, a EdgeLinkAction) error {
	if err := e.store.UnlinkNodes(ctx, e.projectID, a.Edge.Source, a.Edge.Target); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph.HasEdge(a.Edge.Source, a.Edge.Target) {
		_ = e.graph.RemoveEdge(a.Edge.Source, a.Edge.Target)
	}
	return nil
}

func (e *Editor) undoEdgeUnlink(ctx context.Context, a EdgeUnlinkAction) error {
	if err := e.store.LinkNodes(ctx, e.projectID, a.Edge.Source, a.Edge.Target); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph.HasNode(a.Edge.Source) && e.graph.HasNode(a.Edge.Target) {
		_, _ = e.graph.AddEdge(a.Edge.Source, a.Edge.Target)
	}
	return nil
}

// Package remote defines the persistence collaborator consumed by the
// editor: fetching the authoritative graph, node/edge mutations, and the
// change-notification stream that triggers reconciliation. The canonical
// implementation talks to a pengraph server over HTTP; internal/datasource
// provides a local SQLite-backed implementation of the same interface.
package remote

import (
	"context"
	"errors"

	"github.com/pengraph/pengraph/pkg/model"
)

// Error taxonomy. Transport failures are returned as-is (wrapped); the
// sentinels below classify server-side rejections.
var (
	// ErrNotFound marks a stale reference: the id was deleted by another
	// actor between fetch and mutation.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks a request the server rejected as malformed,
	// typically missing required fields on create.
	ErrValidation = errors.New("validation failed")
)

// GraphData is a fetched remote snapshot.
type GraphData struct {
	Nodes []model.Node `json:"nodes"`
	Links []model.Edge `json:"links"`
}

// Store is the persistence interface the editor mutates through. Every call
// is remote and may fail; none of them touch local state.
type Store interface {
	// FetchGraph returns the authoritative node and link sets for a project.
	FetchGraph(ctx context.Context, projectID string) (GraphData, error)

	// CreateNode persists a new node and returns it with the server-assigned id.
	CreateNode(ctx context.Context, projectID string, fields model.NodeFields) (model.Node, error)

	// DeleteNode removes a node; the server cascades edge removal.
	DeleteNode(ctx context.Context, projectID, nodeID string) error

	// LinkNodes records a parent→child relation. Linking an already-linked
	// pair is a no-op server-side.
	LinkNodes(ctx context.Context, projectID, sourceID, targetID string) error

	// UnlinkNodes removes a parent→child relation.
	UnlinkNodes(ctx context.Context, projectID, sourceID, targetID string) error

	// UpdateNodePosition persists the coordinates of a single node.
	UpdateNodePosition(ctx context.Context, projectID, nodeID string, pos model.Position) error

	// DuplicateNode deep-copies a node server-side, including attached
	// commands, findings and tags, and returns the copy.
	DuplicateNode(ctx context.Context, projectID, nodeID string) (model.Node, error)

	// BulkDeleteNodes removes several nodes in one request.
	BulkDeleteNodes(ctx context.Context, projectID string, nodeIDs []string) error
}

// Event is a change notification for a project.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id"`
	Timestamp string `json:"timestamp"`
}

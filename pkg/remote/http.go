package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/pengraph/pengraph/pkg/metrics"
	"github.com/pengraph/pengraph/pkg/model"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 30 * time.Second

// HTTPStore talks to a pengraph server's REST API.
type HTTPStore struct {
	baseURL string // e.g. https://host/api/v1
	token   string
	client  *http.Client
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) { s.client = c }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) HTTPOption {
	return func(s *HTTPStore) { s.token = token }
}

// NewHTTPStore creates a store for the given API base URL
// (scheme://host[:port]/api/v1).
func NewHTTPStore(baseURL string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wireNode is the server's node representation. Position is flattened to
// x_pos/y_pos on the wire.
type wireNode struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	XPos        float64         `json:"x_pos"`
	YPos        float64         `json:"y_pos"`
	Tags        []string        `json:"tags,omitempty"`
	Commands    []model.Command `json:"commands,omitempty"`
	Finding     *model.Finding  `json:"finding,omitempty"`
	Parents     []string        `json:"parents,omitempty"`
	Children    []string        `json:"children,omitempty"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

func (w wireNode) toModel() model.Node {
	n := model.Node{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      model.Status(w.Status),
		Position:    model.Position{X: w.XPos, Y: w.YPos},
		ParentIDs:   w.Parents,
		ChildIDs:    w.Children,
		Tags:        w.Tags,
		Commands:    w.Commands,
		Finding:     w.Finding,
	}
	if w.CreatedAt != nil {
		n.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		n.UpdatedAt = *w.UpdatedAt
	}
	return n
}

type wireLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Links []wireLink `json:"links"`
}

// FetchGraph implements Store.
func (s *HTTPStore) FetchGraph(ctx context.Context, projectID string) (GraphData, error) {
	defer metrics.Timer(metrics.RemoteFetch)()

	var wg wireGraph
	if err := s.do(ctx, http.MethodGet, s.nodesPath(projectID), nil, &wg); err != nil {
		return GraphData{}, fmt.Errorf("fetch graph: %w", err)
	}
	data := GraphData{
		Nodes: make([]model.Node, 0, len(wg.Nodes)),
		Links: make([]model.Edge, 0, len(wg.Links)),
	}
	for _, wn := range wg.Nodes {
		data.Nodes = append(data.Nodes, wn.toModel())
	}
	for _, wl := range wg.Links {
		data.Links = append(data.Links, model.NewEdge(wl.Source, wl.Target))
	}
	return data, nil
}

// CreateNode implements Store.
func (s *HTTPStore) CreateNode(ctx context.Context, projectID string, fields model.NodeFields) (model.Node, error) {
	defer metrics.Timer(metrics.RemoteCreate)()

	if err := fields.Validate(); err != nil {
		return model.Node{}, fmt.Errorf("create node: %w: %w", ErrValidation, err)
	}
	body := map[string]any{
		"title":       fields.Title,
		"description": fields.Description,
		"status":      string(fields.Status),
		"x_pos":       fields.Position.X,
		"y_pos":       fields.Position.Y,
	}
	var wn wireNode
	if err := s.do(ctx, http.MethodPost, s.nodesPath(projectID), body, &wn); err != nil {
		return model.Node{}, fmt.Errorf("create node: %w", err)
	}
	return wn.toModel(), nil
}

// DeleteNode implements Store.
func (s *HTTPStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	defer metrics.Timer(metrics.RemoteDelete)()

	path := s.nodesPath(projectID) + "/" + url.PathEscape(nodeID)
	if err := s.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete node %s: %w", nodeID, err)
	}
	return nil
}

// LinkNodes implements Store.
func (s *HTTPStore) LinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	defer metrics.Timer(metrics.RemoteLink)()

	path := fmt.Sprintf("%s/%s/link/%s", s.nodesPath(projectID), url.PathEscape(sourceID), url.PathEscape(targetID))
	if err := s.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("link %s→%s: %w", sourceID, targetID, err)
	}
	return nil
}

// UnlinkNodes implements Store.
func (s *HTTPStore) UnlinkNodes(ctx context.Context, projectID, sourceID, targetID string) error {
	defer metrics.Timer(metrics.RemoteUnlink)()

	path := fmt.Sprintf("%s/%s/link/%s", s.nodesPath(projectID), url.PathEscape(sourceID), url.PathEscape(targetID))
	if err := s.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("unlink %s→%s: %w", sourceID, targetID, err)
	}
	return nil
}

// UpdateNodePosition implements Store.
func (s *HTTPStore) UpdateNodePosition(ctx context.Context, projectID, nodeID string, pos model.Position) error {
	defer metrics.Timer(metrics.RemotePosition)()

	path := s.nodesPath(projectID) + "/" + url.PathEscape(nodeID)
	body := map[string]any{"x_pos": pos.X, "y_pos": pos.Y}
	if err := s.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("update position of %s: %w", nodeID, err)
	}
	return nil
}

// DuplicateNode implements Store.
func (s *HTTPStore) DuplicateNode(ctx context.Context, projectID, nodeID string) (model.Node, error) {
	defer metrics.Timer(metrics.RemoteDuplicate)()

	path := s.nodesPath(projectID) + "/" + url.PathEscape(nodeID) + "/duplicate"
	var wn wireNode
	if err := s.do(ctx, http.MethodPost, path, nil, &wn); err != nil {
		return model.Node{}, fmt.Errorf("duplicate node %s: %w", nodeID, err)
	}
	return wn.toModel(), nil
}

// BulkDeleteNodes implements Store.
func (s *HTTPStore) BulkDeleteNodes(ctx context.Context, projectID string, nodeIDs []string) error {
	defer metrics.Timer(metrics.RemoteDelete)()

	body := map[string]any{"node_ids": nodeIDs}
	if err := s.do(ctx, http.MethodPost, s.nodesPath(projectID)+"/bulk-delete", body, nil); err != nil {
		return fmt.Errorf("bulk delete %d nodes: %w", len(nodeIDs), err)
	}
	return nil
}

func (s *HTTPStore) nodesPath(projectID string) string {
	return s.baseURL + "/projects/" + url.PathEscape(projectID) + "/nodes"
}

// do performs one request, encoding body as JSON when non-nil and decoding
// the response into out when non-nil.
func (s *HTTPStore) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, readDetail(resp.Body))
	case resp.StatusCode >= 400:
		return fmt.Errorf("server returned %s: %s", resp.Status, readDetail(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readDetail extracts the server's error detail, capped to keep
// notifications short.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(raw) == 0 {
		return "no detail"
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}

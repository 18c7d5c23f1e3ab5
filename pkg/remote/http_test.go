package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pengraph/pengraph/pkg/model"
)

// recordingServer captures the last request and replies with a canned body.
type recordingServer struct {
	method string
	path   string
	auth   string
	body   string

	status   int
	response string
}

func (rs *recordingServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs.method = r.Method
		rs.path = r.URL.Path
		rs.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		rs.body = string(raw)
		if rs.status != 0 {
			w.WriteHeader(rs.status)
		}
		if rs.response != "" {
			w.Write([]byte(rs.response))
		}
	}
}

func newTestStore(t *testing.T, rs *recordingServer, opts ...HTTPOption) *HTTPStore {
	t.Helper()
	srv := httptest.NewServer(rs.handler())
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL+"/api/v1", opts...)
}

func TestFetchGraph_DecodesWireFormat(t *testing.T) {
	rs := &recordingServer{response: `{
		"nodes": [
			{"id": "n1", "title": "recon", "status": "IN_PROGRESS", "x_pos": 10.5, "y_pos": -3},
			{"id": "n2", "title": "scan", "status": "NOT_STARTED", "x_pos": 0, "y_pos": 0}
		],
		"links": [{"source": "n1", "target": "n2"}]
	}`}
	s := newTestStore(t, rs)

	data, err := s.FetchGraph(context.Background(), "p1")
	if err != nil {
		t.Fatalf("FetchGraph: %v", err)
	}
	if rs.method != http.MethodGet || rs.path != "/api/v1/projects/p1/nodes" {
		t.Errorf("unexpected request %s %s", rs.method, rs.path)
	}
	if len(data.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(data.Nodes))
	}
	n := data.Nodes[0]
	if n.Status != model.StatusInProgress {
		t.Errorf("expected status mapped, got %s", n.Status)
	}
	if n.Position != (model.Position{X: 10.5, Y: -3}) {
		t.Errorf("expected x_pos/y_pos flattened into Position, got %+v", n.Position)
	}
	if len(data.Links) != 1 || data.Links[0].ID != model.EdgeID("n1", "n2") {
		t.Errorf("expected derived edge id, got %+v", data.Links)
	}
}

func TestCreateNode_SendsWireBody(t *testing.T) {
	rs := &recordingServer{response: `{"id": "srv-1", "title": "web", "status": "NOT_STARTED", "x_pos": 5, "y_pos": 6}`}
	s := newTestStore(t, rs, WithToken("secret"))

	n, err := s.CreateNode(context.Background(), "p1", model.NodeFields{
		Title: "web", Position: model.Position{X: 5, Y: 6},
	})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if rs.method != http.MethodPost {
		t.Errorf("expected POST, got %s", rs.method)
	}
	if rs.auth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", rs.auth)
	}
	for _, field := range []string{`"x_pos":5`, `"y_pos":6`, `"title":"web"`} {
		if !strings.Contains(rs.body, field) {
			t.Errorf("request body missing %s: %s", field, rs.body)
		}
	}
	if n.ID != "srv-1" {
		t.Errorf("expected server id, got %q", n.ID)
	}
}

func TestCreateNode_LocalValidation(t *testing.T) {
	rs := &recordingServer{}
	s := newTestStore(t, rs)

	_, err := s.CreateNode(context.Background(), "p1", model.NodeFields{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if rs.method != "" {
		t.Error("expected no request for an invalid node")
	}
}

func TestLinkUnlink_Paths(t *testing.T) {
	rs := &recordingServer{}
	s := newTestStore(t, rs)
	ctx := context.Background()

	if err := s.LinkNodes(ctx, "p1", "a", "b"); err != nil {
		t.Fatal(err)
	}
	if rs.method != http.MethodPost || rs.path != "/api/v1/projects/p1/nodes/a/link/b" {
		t.Errorf("unexpected link request %s %s", rs.method, rs.path)
	}

	if err := s.UnlinkNodes(ctx, "p1", "a", "b"); err != nil {
		t.Fatal(err)
	}
	if rs.method != http.MethodDelete || rs.path != "/api/v1/projects/p1/nodes/a/link/b" {
		t.Errorf("unexpected unlink request %s %s", rs.method, rs.path)
	}
}

func TestUpdateNodePosition_Body(t *testing.T) {
	rs := &recordingServer{}
	s := newTestStore(t, rs)

	if err := s.UpdateNodePosition(context.Background(), "p1", "n1", model.Position{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	if rs.method != http.MethodPut || rs.path != "/api/v1/projects/p1/nodes/n1" {
		t.Errorf("unexpected request %s %s", rs.method, rs.path)
	}
	if !strings.Contains(rs.body, `"x_pos":1`) || !strings.Contains(rs.body, `"y_pos":2`) {
		t.Errorf("body missing coordinates: %s", rs.body)
	}
}

func TestBulkDelete_Body(t *testing.T) {
	rs := &recordingServer{}
	s := newTestStore(t, rs)

	if err := s.BulkDeleteNodes(context.Background(), "p1", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if rs.path != "/api/v1/projects/p1/nodes/bulk-delete" {
		t.Errorf("unexpected path %s", rs.path)
	}
	if !strings.Contains(rs.body, `"node_ids":["a","b"]`) {
		t.Errorf("body missing node ids: %s", rs.body)
	}
}

func TestStatusMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("404 maps to ErrNotFound", func(t *testing.T) {
		rs := &recordingServer{status: http.StatusNotFound}
		s := newTestStore(t, rs)
		if err := s.DeleteNode(ctx, "p1", "ghost"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("422 maps to ErrValidation with detail", func(t *testing.T) {
		rs := &recordingServer{status: http.StatusUnprocessableEntity, response: `{"detail": "title too long"}`}
		s := newTestStore(t, rs)
		err := s.LinkNodes(ctx, "p1", "a", "b")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(err.Error(), "title too long") {
			t.Errorf("expected server detail in error, got %v", err)
		}
	})

	t.Run("500 surfaces status text", func(t *testing.T) {
		rs := &recordingServer{status: http.StatusInternalServerError, response: "boom"}
		s := newTestStore(t, rs)
		err := s.UnlinkNodes(ctx, "p1", "a", "b")
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Fatalf("expected server error detail, got %v", err)
		}
	})
}

func TestNewHTTPStore_TrimsTrailingSlash(t *testing.T) {
	s := NewHTTPStore("https://host/api/v1///")
	if got := s.nodesPath("p1"); got != "https://host/api/v1/projects/p1/nodes" {
		t.Errorf("unexpected path %s", got)
	}
}

func TestDuplicateNode_Path(t *testing.T) {
	rs := &recordingServer{response: `{"id": "srv-2", "title": "web (Copy)", "status": "NOT_STARTED"}`}
	s := newTestStore(t, rs)

	n, err := s.DuplicateNode(context.Background(), "p1", "n1")
	if err != nil {
		t.Fatal(err)
	}
	if rs.path != "/api/v1/projects/p1/nodes/n1/duplicate" {
		t.Errorf("unexpected path %s", rs.path)
	}
	if n.Title != "web (Copy)" {
		t.Errorf("unexpected title %q", n.Title)
	}
}

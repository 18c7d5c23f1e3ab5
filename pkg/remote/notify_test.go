package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewNotifier_URLRewrite(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://host:8000/api/v1", "ws://host:8000/ws/projects/p1"},
		{"https://host/api/v1", "wss://host/ws/projects/p1"},
		{"ws://host", "ws://host/ws/projects/p1"},
	}
	for _, tc := range cases {
		n, err := NewNotifier(tc.base, "p1", "")
		if err != nil {
			t.Errorf("NewNotifier(%s): %v", tc.base, err)
			continue
		}
		if n.wsURL != tc.want {
			t.Errorf("NewNotifier(%s) = %s, want %s", tc.base, n.wsURL, tc.want)
		}
	}
}

func TestNewNotifier_TokenQuery(t *testing.T) {
	n, err := NewNotifier("http://host/api/v1", "p1", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(n.wsURL, "token=s3cret") {
		t.Errorf("expected token in url, got %s", n.wsURL)
	}
}

func TestNewNotifier_UnsupportedScheme(t *testing.T) {
	if _, err := NewNotifier("ftp://host", "p1", ""); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestNotifier_DeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Acknowledgement first; it must be swallowed.
		conn.WriteJSON(Event{Type: "connected"})
		conn.WriteJSON(Event{Type: "node_created", ProjectID: "p1"})
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	n, err := NewNotifier(srv.URL, "p1", "")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer n.Close()

	select {
	case ev := <-n.Events():
		if ev.Type != "node_created" {
			t.Errorf("expected node_created first, got %s", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNotifier_StartTwice(t *testing.T) {
	n, err := NewNotifier("http://127.0.0.1:1/api/v1", "p1", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer n.Close()
	if err := n.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestNotifier_CloseBeforeStart(t *testing.T) {
	n, err := NewNotifier("http://host/api/v1", "p1", "")
	if err != nil {
		t.Fatal(err)
	}
	n.Close() // must not panic or block
}

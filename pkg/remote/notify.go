package remote

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/pengraph/pengraph/pkg/debug"
)

// reconnectBase is the initial backoff between reconnect attempts; it
// doubles up to reconnectMax.
const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// Notifier subscribes to a project's change-notification stream over a
// websocket and delivers events on Events(). The editor treats any event as
// a remote-state-changed signal and reconciles.
type Notifier struct {
	wsURL  string
	events chan Event

	mu     sync.Mutex
	cancel context.CancelFunc
	conn   *websocket.Conn
	done   chan struct{}
}

// NewNotifier builds a notifier for the given API base URL and project.
// http(s) schemes are rewritten to ws(s).
func NewNotifier(baseURL, projectID, token string) (*Notifier, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("notifier: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("notifier: unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws/projects/" + url.PathEscape(projectID)
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return &Notifier{
		wsURL:  u.String(),
		events: make(chan Event, 8),
	}, nil
}

// Events returns the notification channel. It is closed when the notifier
// stops.
func (n *Notifier) Events() <-chan Event {
	return n.events
}

// Start connects and begins delivering events until ctx is cancelled or
// Close is called. Connection drops trigger reconnection with exponential
// backoff; events are never replayed, which is fine because every event
// only means "re-fetch".
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.cancel != nil {
		n.mu.Unlock()
		return fmt.Errorf("notifier already started")
	}
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})
	n.mu.Unlock()

	go n.run(ctx)
	return nil
}

// Close stops the notifier and closes the event channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	cancel := n.cancel
	conn := n.conn
	done := n.done
	n.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}
}

func (n *Notifier) run(ctx context.Context) {
	defer close(n.events)
	defer close(n.done)

	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.wsURL, nil)
		if err != nil {
			debug.Log("notifier: dial failed: %v (retry in %v)", err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		backoff = reconnectBase

		n.mu.Lock()
		n.conn = conn
		n.mu.Unlock()

		n.readLoop(ctx, conn)

		n.mu.Lock()
		n.conn = nil
		n.mu.Unlock()
		conn.Close()
	}
}

func (n *Notifier) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !strings.Contains(err.Error(), "use of closed") {
				debug.Log("notifier: read failed: %v", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			debug.Log("notifier: bad event payload: %v", err)
			continue
		}
		// The initial "connected" acknowledgement is not a state change.
		if ev.Type == "connected" {
			continue
		}

		select {
		case n.events <- ev:
		case <-ctx.Done():
			return
		default:
			// A slow consumer only needs to learn "something changed" once;
			// coalesce by dropping when the buffer is full.
			debug.Log("notifier: dropped %s event (consumer busy)", ev.Type)
		}
	}
}

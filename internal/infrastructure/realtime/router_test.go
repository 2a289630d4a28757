package realtime_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"birdconnect/internal/infrastructure/realtime"

	"github.com/gorilla/websocket"
)

type harness struct {
	router   *realtime.Router
	server   *httptest.Server
	attached chan *realtime.Connection
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{router: realtime.NewRouter(), attached: make(chan *realtime.Connection, 4)}
	upgrader := websocket.Upgrader{}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := realtime.NewConnection(r.URL.Query().Get("user_id"), ws)
		h.router.Attach(conn)
		h.attached <- conn
		defer h.router.Detach(conn)
		conn.PrepareRead(time.Minute)
		for {
			var v map[string]any
			if err := conn.ReadJSON(&v); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		h.router.Close()
		h.server.Close()
	})
	return h
}

func (h *harness) dial(t *testing.T, userID string) (*websocket.Conn, *realtime.Connection) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?user_id=" + userID
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	select {
	case conn := <-h.attached:
		return client, conn
	case <-time.After(2 * time.Second):
		t.Fatalf("server never attached %s", userID)
	}
	return nil, nil
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestRouterBroadcastToRoom(t *testing.T) {
	h := newHarness(t)
	aliceWS, alice := h.dial(t, "alice")
	bobWS, bob := h.dial(t, "bob")

	h.router.Join("c1", alice)
	h.router.Join("c1", bob)

	if n := h.router.Broadcast("c1", []byte(`{"type":"message"}`), "bob"); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if got := readText(t, aliceWS); got != `{"type":"message"}` {
		t.Fatalf("alice got %s", got)
	}

	if !h.router.NotifyUser("bob", []byte(`{"type":"conversation_updated"}`)) {
		t.Fatalf("bob should be reachable")
	}
	if got := readText(t, bobWS); got != `{"type":"conversation_updated"}` {
		t.Fatalf("bob got %s", got)
	}

	h.router.Leave("c1", alice)
	if n := h.router.Broadcast("c1", []byte(`{}`), ""); n != 1 {
		t.Fatalf("expected only bob after leave, got %d", n)
	}

	sessions, rooms := h.router.Stats()
	if sessions != 2 || rooms != 1 {
		t.Fatalf("unexpected stats sessions=%d rooms=%d", sessions, rooms)
	}
}

func TestRouterReplacesSessionPerUser(t *testing.T) {
	h := newHarness(t)
	firstWS, _ := h.dial(t, "alice")
	_, second := h.dial(t, "alice")

	_ = firstWS.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := firstWS.ReadMessage()
	if !websocket.IsCloseError(err, realtime.CloseSessionReplaced) {
		t.Fatalf("expected session replaced close, got %v", err)
	}

	if !h.router.Online("alice") {
		t.Fatalf("alice should still be online through the new session")
	}
	h.router.Join("c1", second)
	if n := h.router.Broadcast("c1", []byte(`{}`), ""); n != 1 {
		t.Fatalf("expected the new session to receive, got %d", n)
	}
}

func TestRouterUnknownUser(t *testing.T) {
	r := realtime.NewRouter()
	if r.NotifyUser("nobody", []byte("x")) {
		t.Fatalf("expected false for unknown user")
	}
	if n := r.Broadcast("missing", []byte("x"), ""); n != 0 {
		t.Fatalf("expected no deliveries, got %d", n)
	}
}

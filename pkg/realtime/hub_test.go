package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := hub.Add(r.URL.Query().Get("user"), conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		hub.Remove(c)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubPublish(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool {
		return hub.ConnectionCount("alice") == 1 && hub.ConnectionCount("bob") == 1
	}, time.Second, 10*time.Millisecond)

	n := hub.Publish("alice", map[string]string{"title": "hello"})
	assert.Equal(t, 1, n)

	var got map[string]string
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, "hello", got["title"])

	// bob must not receive alice's message
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHubPublishReachesEveryConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	conns := []*websocket.Conn{dial(t, srv, "alice"), dial(t, srv, "alice"), dial(t, srv, "alice")}
	require.Eventually(t, func() bool { return hub.ConnectionCount("alice") == 3 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, hub.Publish("alice", map[string]string{"title": "fan-out"}))
	for _, conn := range conns {
		var got map[string]string
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "fan-out", got["title"])
	}
}

func TestHubPublishWithoutConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.Equal(t, 0, hub.Publish("nobody", map[string]string{}))
}

func TestHubRemoveOnDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newTestServer(t, hub)

	conn := dial(t, srv, "carol")
	require.Eventually(t, func() bool { return hub.ConnectionCount("carol") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectionCount("carol") == 0 }, time.Second, 10*time.Millisecond)
}

package application

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, hub Huber, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ConnectionsCount() == n }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastByChannel(t *testing.T) {
	hub := NewHub(&HuberOptions{})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	all := dial(t, base)
	scoped := dial(t, base+"?channel=process/1")
	waitForConnections(t, hub, 2)

	hub.Broadcast("process/1", map[string]string{"type": "scoped"})
	hub.Broadcast(ChannelAll, map[string]string{"type": "everyone"})

	hub.Broadcast("process/1", map[string]string{"type": "scoped-again"})

	var msg map[string]string
	require.NoError(t, scoped.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, scoped.ReadJSON(&msg))
	require.Equal(t, "scoped", msg["type"])
	require.NoError(t, scoped.ReadJSON(&msg))
	require.Equal(t, "scoped-again", msg["type"])

	require.NoError(t, all.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, all.ReadJSON(&msg))
	require.Equal(t, "everyone", msg["type"])
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub(&HuberOptions{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	waitForConnections(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, hub, 0)
	hub.Broadcast(ChannelAll, map[string]string{"type": "nobody"})
}

package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(64)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := NewUpgrader([]string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, upgrader, w, r)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func join(t *testing.T, conn *websocket.Conn, room string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeJoinRoom, Room: room}))
	ack := readEvent(t, conn)
	require.Equal(t, TypeJoined, ack.Type)
	require.Equal(t, room, ack.Room)
}

func TestRoomBroadcastIsolation(t *testing.T) {
	hub, url := startServer(t)

	westlands := dial(t, url)
	karen := dial(t, url)
	join(t, westlands, "level-ward-Westlands")
	join(t, karen, "level-ward-Karen")

	ev, err := NewEvent(TypeNewPost, "level-ward-Karen", map[string]string{"id": "karen-post"})
	require.NoError(t, err)
	hub.Publish(ev)
	ev, err = NewEvent(TypeNewPost, "level-ward-Westlands", map[string]string{"id": "westlands-post"})
	require.NoError(t, err)
	hub.Publish(ev)

	got := readEvent(t, westlands)
	assert.Equal(t, TypeNewPost, got.Type)
	assert.JSONEq(t, `{"id":"westlands-post"}`, string(got.Data))

	got = readEvent(t, karen)
	assert.JSONEq(t, `{"id":"karen-post"}`, string(got.Data))

	// nothing else is queued for westlands
	westlands.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra Event
	assert.Error(t, westlands.ReadJSON(&extra))
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub, url := startServer(t)
	conn := dial(t, url)
	join(t, conn, "level-home-all")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeLeaveRoom, Room: "level-home-all"}))
	ack := readEvent(t, conn)
	require.Equal(t, TypeLeft, ack.Type)
	assert.Equal(t, 0, hub.RoomSize("level-home-all"))

	ev, _ := NewEvent(TypeNewPost, "level-home-all", nil)
	hub.Publish(ev)
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra Event
	assert.Error(t, conn.ReadJSON(&extra))
}

func TestJoinByScopeFields(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeJoinRoom, LevelType: "constituency", LevelValue: "Langata"}))
	ack := readEvent(t, conn)
	assert.Equal(t, TypeJoined, ack.Type)
	assert.Equal(t, "level-constituency-Langata", ack.Room)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "shout", Room: "level-home-all"}))
	ack = readEvent(t, conn)
	assert.Equal(t, TypeError, ack.Type)
}

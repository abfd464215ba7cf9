package feedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"broadcast/internal/geo"
	"broadcast/internal/models"
	"broadcast/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts", r.URL.Path)
		if r.URL.Query().Get("levelType") == "planet" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status":400,"message":"bad levelType"}`))
			return
		}
		assert.Equal(t, "ward", r.URL.Query().Get("levelType"))
		assert.Equal(t, "Westlands", r.URL.Query().Get("levelValue"))
		json.NewEncoder(w).Encode([]models.Post{{Pid: "p1", Caption: "hi"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil)
	posts, err := c.ListPosts(context.Background(), geo.NewScope("ward", "Westlands"))
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p1", posts[0].Pid)

	_, err = c.ListPosts(context.Background(), geo.Scope{LevelType: "planet", LevelValue: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bad levelType", apiErr.Message)
}

func TestClientToggleLike(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/posts/p1/like", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "me", body["userId"])
		w.Write([]byte(`{"success":true,"likes":3,"liked":true}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, srv.Client()).ToggleLike(context.Background(), "p1", "me")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Success: true, Likes: 3, Liked: true}, res)
}

func TestSubscriberReceivesRoomEvents(t *testing.T) {
	hub := realtime.NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := realtime.NewUpgrader([]string{"*"})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		realtime.ServeWS(hub, upgrader, w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	sub, err := Dial(ctx, srv.URL)
	require.NoError(t, err)

	room := geo.NewScope("ward", "Westlands").Room()
	require.NoError(t, sub.Join(room))
	require.Eventually(t, func() bool { return hub.RoomSize(room) == 1 }, 2*time.Second, 10*time.Millisecond)

	ev, err := realtime.NewEvent(realtime.TypeNewPost, room, models.Post{Pid: "p1"})
	require.NoError(t, err)
	hub.Publish(ev)

	select {
	case got := <-sub.Events():
		assert.Equal(t, realtime.TypeNewPost, got.Type)
		assert.Equal(t, room, got.Room)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	require.NoError(t, sub.Leave(room))
	require.Eventually(t, func() bool { return hub.RoomSize(room) == 0 }, 2*time.Second, 10*time.Millisecond)

	sub.Close()
	_, open := <-sub.Events()
	assert.False(t, open)
}

// roomServer accepts websocket connections, hands each one to the test and
// reports the rooms joined on it.
type roomServer struct {
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	joins    chan string
}

func (s *roomServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.conns <- conn
	for {
		var msg realtime.ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == realtime.TypeJoinRoom {
			s.joins <- msg.Room
		}
	}
}

func TestReconnectResyncsFeed(t *testing.T) {
	defer func(d time.Duration) { reconnectBackoff = d }(reconnectBackoff)
	reconnectBackoff = 10 * time.Millisecond

	rs := &roomServer{conns: make(chan *websocket.Conn, 4), joins: make(chan string, 8)}
	mux := http.NewServeMux()
	mux.Handle("/ws", rs)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := Dial(ctx, srv.URL)
	require.NoError(t, err)
	defer sub.Close()

	source := &fakeSource{feeds: map[string][]models.Post{westlands: {{Pid: "p1"}}}}
	rec := NewReconciler(source, sub)
	require.NoError(t, rec.SetScope(ctx, geo.NewScope("ward", "Westlands")))
	go rec.Run(ctx, sub.Events(), sub.Resync(), nil)

	first := <-rs.conns
	assert.Equal(t, westlands, <-rs.joins)

	// posted while the connection is down
	source.set(westlands, []models.Post{{Pid: "p2"}, {Pid: "p1"}}, nil)
	first.Close()

	var second *websocket.Conn
	select {
	case second = <-rs.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not reconnect")
	}
	assert.Equal(t, westlands, <-rs.joins, "room joined again")

	require.Eventually(t, func() bool {
		snap := rec.Snapshot()
		return len(snap) == 2 && snap[0].Pid == "p2"
	}, 2*time.Second, 10*time.Millisecond)

	// events flow on the new connection
	ev, err := realtime.NewEvent(realtime.TypeNewPost, westlands, models.Post{Pid: "p3"})
	require.NoError(t, err)
	require.NoError(t, second.WriteJSON(ev))
	require.Eventually(t, func() bool {
		snap := rec.Snapshot()
		return len(snap) == 3 && snap[0].Pid == "p3"
	}, 2*time.Second, 10*time.Millisecond)
}

package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeClient(h *Hub, id string, buffer int) *Client {
	c := &Client{id: id, hub: h, send: make(chan []byte, buffer)}
	h.Register(c)
	return c
}

func received(c *Client) []Event {
	var out []Event
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var ev Event
			if err := json.Unmarshal(data, &ev); err == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func TestDeliverOnlyToRoomMembers(t *testing.T) {
	h := NewHub(8)
	westlands := fakeClient(h, "westlands", 4)
	karen := fakeClient(h, "karen", 4)
	h.Join(westlands, "level-ward-Westlands")
	h.Join(karen, "level-ward-Karen")

	ev, err := NewEvent(TypeNewPost, "level-ward-Westlands", map[string]string{"id": "p1"})
	require.NoError(t, err)
	h.deliver(ev)

	got := received(westlands)
	require.Len(t, got, 1)
	assert.Equal(t, TypeNewPost, got[0].Type)
	assert.JSONEq(t, `{"id":"p1"}`, string(got[0].Data))
	assert.Empty(t, received(karen))
}

func TestJoinLeaveMembership(t *testing.T) {
	h := NewHub(8)
	c := fakeClient(h, "c", 4)

	h.Join(c, "level-home-all")
	h.Join(c, "level-home-all")
	h.Join(c, "level-county-Nairobi")
	assert.Equal(t, 1, h.RoomSize("level-home-all"))
	assert.Len(t, h.clients[c], 2)

	h.Leave(c, "level-home-all")
	assert.Equal(t, 0, h.RoomSize("level-home-all"))

	ev, _ := NewEvent(TypeNewPost, "level-home-all", nil)
	h.deliver(ev)
	assert.Empty(t, received(c))
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	h := NewHub(8)
	c := fakeClient(h, "c", 4)
	h.Join(c, "level-ward-Westlands")
	h.Join(c, "level-ward-Karen")

	h.Unregister(c)
	h.Unregister(c)

	assert.Equal(t, 0, h.RoomSize("level-ward-Westlands"))
	assert.Equal(t, 0, h.RoomSize("level-ward-Karen"))
	_, open := <-c.send
	assert.False(t, open)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub(8)
	slow := fakeClient(h, "slow", 1)
	fast := fakeClient(h, "fast", 8)
	h.Join(slow, "r")
	h.Join(fast, "r")

	for i := 0; i < 3; i++ {
		ev, _ := NewEvent(TypeUpdatePost, "r", nil)
		h.deliver(ev)
	}

	assert.Equal(t, 1, h.RoomSize("r"))
	assert.Len(t, received(fast), 3)
	assert.Len(t, received(slow), 1)
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub(1)
	ev, _ := NewEvent(TypeNewPost, "r", nil)
	h.Publish(ev)
	h.Publish(ev) // queue full, dropped
	assert.Len(t, h.broadcast, 1)
}

func TestResolveRoom(t *testing.T) {
	tests := []struct {
		name    string
		msg     ClientMessage
		want    string
		wantErr bool
	}{
		{"explicit room", ClientMessage{Room: "level-ward-Westlands"}, "level-ward-Westlands", false},
		{"scope fields", ClientMessage{LevelType: "county", LevelValue: "Nairobi"}, "level-county-Nairobi", false},
		{"home", ClientMessage{LevelType: "home"}, "level-home-all", false},
		{"bad room", ClientMessage{Room: "lobby"}, "", true},
		{"missing value", ClientMessage{LevelType: "ward"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRoom(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunDeliversQueuedEventsBeforeClosing(t *testing.T) {
	h := NewHub(8)
	c := fakeClient(h, "c", 4)
	h.Join(c, "level-ward-Westlands")

	// published while shutdown is already under way
	for _, pid := range []string{"p1", "p2"} {
		ev, err := NewEvent(TypeUpdatePost, "level-ward-Westlands", DeletedPost{ID: pid})
		require.NoError(t, err)
		h.Publish(ev)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	got := received(c)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"id":"p2"}`, string(got[1].Data))
	assert.Equal(t, 0, h.RoomSize("level-ward-Westlands"))
}

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "broadcast:test"

func startBridge(t *testing.T) (*miniredis.Miniredis, *Hub, *RedisBridge) {
	t.Helper()
	mr := miniredis.RunT(t)

	hub := NewHub(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	bridge, err := NewRedisBridge("redis://"+mr.Addr(), testChannel, hub)
	require.NoError(t, err)
	t.Cleanup(func() { bridge.Close() })
	go bridge.Run(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(testChannel)[testChannel] == 1
	}, 2*time.Second, 10*time.Millisecond, "bridge never subscribed")
	return mr, hub, bridge
}

// collect keeps reading c until want events arrived or the wait expires.
func collect(t *testing.T, c *Client, want int) []Event {
	t.Helper()
	var got []Event
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want && time.Now().Before(deadline) {
		got = append(got, received(c)...)
		time.Sleep(10 * time.Millisecond)
	}
	return got
}

func TestRedisBridgeDeliversToRoomMembers(t *testing.T) {
	_, hub, bridge := startBridge(t)
	westlands := fakeClient(hub, "westlands", 4)
	karen := fakeClient(hub, "karen", 4)
	hub.Join(westlands, "level-ward-Westlands")
	hub.Join(karen, "level-ward-Karen")

	ev, err := NewEvent(TypeDeletePost, "level-ward-Westlands", DeletedPost{ID: "p1"})
	require.NoError(t, err)
	bridge.Publish(ev)

	got := collect(t, westlands, 1)
	require.Len(t, got, 1)
	assert.Equal(t, TypeDeletePost, got[0].Type)
	assert.JSONEq(t, `{"id":"p1"}`, string(got[0].Data))
	assert.Empty(t, received(karen))
}

func TestRedisBridgeSkipsUndecodablePayloads(t *testing.T) {
	mr, hub, bridge := startBridge(t)
	c := fakeClient(hub, "c", 4)
	hub.Join(c, "level-home-all")

	mr.Publish(testChannel, "{not json")

	ev, err := NewEvent(TypeNewPost, "level-home-all", DeletedPost{ID: "p2"})
	require.NoError(t, err)
	bridge.Publish(ev)

	got := collect(t, c, 1)
	require.Len(t, got, 1)
	assert.Equal(t, TypeNewPost, got[0].Type)
}

package realtime

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Hub owns room membership and fans events out to the connections in a
// room. Delivery is at-most-once: a connection that cannot keep up is
// dropped rather than waited for.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}

	// 待分发的事件
	broadcast chan Event
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		clients:   make(map[*Client]map[string]struct{}),
		broadcast: make(chan Event, buffer),
	}
}

// Run dispatches published events until ctx is done. Events already
// queued at that point are still delivered, then every connection is
// closed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-ctx.Done():
			log.Println("[WS] Hub stopping...")
			h.drain()
			h.closeAll()
			return
		}
	}
}

func (h *Hub) drain() {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		default:
			return
		}
	}
}

// Publish queues ev for delivery without blocking the caller.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.WithFields(log.Fields{"room": ev.Room, "type": ev.Type}).Warn("[WS] broadcast queue full, event dropped")
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = make(map[string]struct{})
	total := len(h.clients)
	h.mu.Unlock()
	log.WithField("clients", total).Debugf("[WS] client %s registered", c.id)
}

// Unregister removes c from every room and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// Join adds c to room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.clients[c]
	if !ok {
		return
	}
	joined[room] = struct{}{}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

// Leave removes c from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if joined, ok := h.clients[c]; ok {
		delete(joined, room)
	}
	h.leaveLocked(c, room)
}

// RoomSize returns the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// sendTo queues ev on a single connection. It reports false when c is no
// longer registered or its queue is full.
func (h *Hub) sendTo(c *Client, ev Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) deliver(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] encode %s event: %v", ev.Type, err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[ev.Room] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		log.Warnf("[WS] client %s too slow, dropping connection", c.id)
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client) {
	joined, ok := h.clients[c]
	if !ok {
		return
	}
	for room := range joined {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

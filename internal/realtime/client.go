package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"broadcast/internal/geo"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket connection. It may be a member of any number of
// rooms; only its own read loop changes that membership.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// NewUpgrader returns an upgrader accepting the given origins. "*" accepts
// any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// ServeWS upgrades the request and blocks until the connection closes.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := newClient(hub, conn)
	hub.Register(client)

	go client.writePump()
	client.readPump()
}

// client to server
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close error for client %s: %v", c.id, err)
			}
			return
		}
		// handled inline so join/leave keep the order the client sent them in
		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(TypeError, "", map[string]string{"message": "invalid message"})
		return
	}

	room, err := resolveRoom(msg)
	if err != nil {
		c.reply(TypeError, msg.Room, map[string]string{"message": err.Error()})
		return
	}

	switch msg.Type {
	case TypeJoinRoom:
		c.hub.Join(c, room)
		log.Debugf("[WS] client %s joined room: %s", c.id, room)
		c.reply(TypeJoined, room, nil)
	case TypeLeaveRoom:
		c.hub.Leave(c, room)
		log.Debugf("[WS] client %s left room: %s", c.id, room)
		c.reply(TypeLeft, room, nil)
	default:
		c.reply(TypeError, room, map[string]string{"message": "unknown message type " + msg.Type})
	}
}

func resolveRoom(msg ClientMessage) (string, error) {
	if msg.Room != "" {
		if _, ok := geo.ParseRoom(msg.Room); !ok {
			return "", errInvalidRoom(msg.Room)
		}
		return msg.Room, nil
	}
	scope := geo.NewScope(msg.LevelType, msg.LevelValue)
	if err := scope.Validate(); err != nil {
		return "", err
	}
	return scope.Room(), nil
}

type errInvalidRoom string

func (e errInvalidRoom) Error() string { return "invalid room " + string(e) }

func (c *Client) reply(typ EventType, room string, data interface{}) {
	ev, err := NewEvent(typ, room, data)
	if err != nil {
		return
	}
	if !c.hub.sendTo(c, ev) {
		log.Debugf("[WS] reply to client %s dropped", c.id)
	}
}

// server to client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Error writing message for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

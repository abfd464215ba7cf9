package handlers

import (
	"net/http"

	"broadcast/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, upgrader: realtime.NewUpgrader(allowedOrigins)}
}

// Serve GET /ws
func (h *RealtimeHandler) Serve(c *gin.Context) {
	realtime.ServeWS(h.hub, h.upgrader, c.Writer, c.Request)
}

// Room GET /ws/rooms/:room reports how many connections are in a room.
func (h *RealtimeHandler) Room(c *gin.Context) {
	room := c.Param("room")
	c.JSON(http.StatusOK, gin.H{"room": room, "connections": h.hub.RoomSize(room)})
}

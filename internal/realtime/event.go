package realtime

import (
	"encoding/json"
	"time"
)

type EventType string

// Server -> room events.
const (
	TypeNewPost    EventType = "newPost"
	TypeUpdatePost EventType = "updatePost"
	TypeDeletePost EventType = "deletePost"
)

// Server -> connection acknowledgements.
const (
	TypeJoined EventType = "joinedRoom"
	TypeLeft   EventType = "leftRoom"
	TypeError  EventType = "error"
)

// Client -> server requests.
const (
	TypeJoinRoom  = "joinRoom"
	TypeLeaveRoom = "leaveRoom"
)

// Event is the frame pushed to connections.
type Event struct {
	Type      EventType       `json:"type"`
	Room      string          `json:"room"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DeletedPost is the payload of a deletePost event.
type DeletedPost struct {
	ID string `json:"id"`
}

// NewEvent encodes data into an event for room.
func NewEvent(typ EventType, room string, data interface{}) (Event, error) {
	ev := Event{Type: typ, Room: room, Timestamp: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		ev.Data = raw
	}
	return ev, nil
}

// ClientMessage is a request sent by a connection. Room may be omitted in
// favour of LevelType/LevelValue.
type ClientMessage struct {
	Type       string `json:"type"`
	Room       string `json:"room,omitempty"`
	LevelType  string `json:"levelType,omitempty"`
	LevelValue string `json:"levelValue,omitempty"`
}

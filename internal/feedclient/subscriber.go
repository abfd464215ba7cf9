package feedclient

import (
	"context"
	"strings"
	"sync"
	"time"

	"broadcast/internal/realtime"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// reconnectBackoff is the first wait before redialling; it doubles up to
// maxReconnectBackoff.
var (
	reconnectBackoff    = 500 * time.Millisecond
	maxReconnectBackoff = 10 * time.Second
)

// Subscriber is a websocket connection to /ws. Room events arrive on
// Events; acknowledgements are only logged. A dropped connection is
// redialled with backoff and the joined rooms are joined again.
type Subscriber struct {
	url    string
	dialer *websocket.Dialer

	mu    sync.Mutex // guards conn and rooms, serializes writes
	conn  *websocket.Conn
	rooms map[string]struct{}

	events chan realtime.Event
	resync chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	minBackoff time.Duration
	maxBackoff time.Duration
}

// Dial connects to the websocket endpoint of the server at baseURL
// (http:// or https://).
func Dial(ctx context.Context, baseURL string) (*Subscriber, error) {
	wsURL := strings.TrimRight(baseURL, "/") + "/ws"
	wsURL = "ws" + strings.TrimPrefix(wsURL, "http")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Subscriber{
		url:        wsURL,
		dialer:     websocket.DefaultDialer,
		conn:       conn,
		rooms:      make(map[string]struct{}),
		events:     make(chan realtime.Event, 64),
		resync:     make(chan struct{}, 1),
		ctx:        runCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
		minBackoff: reconnectBackoff,
		maxBackoff: maxReconnectBackoff,
	}
	go s.run()
	return s, nil
}

// Join subscribes to room. The room is remembered and joined again after
// a reconnect, even when this write fails.
func (s *Subscriber) Join(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = struct{}{}
	return s.writeLocked(realtime.ClientMessage{Type: realtime.TypeJoinRoom, Room: room})
}

func (s *Subscriber) Leave(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
	return s.writeLocked(realtime.ClientMessage{Type: realtime.TypeLeaveRoom, Room: room})
}

// Events is closed after Close. Events are dropped while the buffer is
// full; a drop is reported on Resync.
func (s *Subscriber) Events() <-chan realtime.Event {
	return s.events
}

// Resync receives a signal whenever events may have been missed: after a
// reconnect, or after an event was dropped. Local state should be
// reloaded from a fresh snapshot.
func (s *Subscriber) Resync() <-chan struct{} {
	return s.resync
}

func (s *Subscriber) Close() error {
	s.cancel()
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	err := s.conn.Close()
	s.mu.Unlock()
	<-s.done
	return err
}

func (s *Subscriber) writeLocked(msg realtime.ClientMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *Subscriber) run() {
	defer close(s.done)
	defer close(s.events)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		s.readLoop(conn)
		if s.ctx.Err() != nil {
			return
		}
		if !s.reconnect() {
			return
		}
		s.signalResync()
	}
}

func (s *Subscriber) readLoop(conn *websocket.Conn) {
	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if s.ctx.Err() == nil {
				log.Warnf("[WS] subscriber connection lost: %v", err)
			}
			return
		}
		switch ev.Type {
		case realtime.TypeJoined, realtime.TypeLeft:
			log.WithField("room", ev.Room).Debugf("[WS] %s", ev.Type)
		case realtime.TypeError:
			log.WithField("room", ev.Room).Warnf("[WS] server error: %s", string(ev.Data))
		default:
			select {
			case s.events <- ev:
			default:
				log.WithField("room", ev.Room).Warnf("[WS] subscriber behind, %s dropped", ev.Type)
				s.signalResync()
			}
		}
	}
}

// reconnect dials until it succeeds or the subscriber is closed, then
// joins every remembered room on the new connection.
func (s *Subscriber) reconnect() bool {
	backoff := s.minBackoff
	for {
		select {
		case <-s.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		conn, _, err := s.dialer.DialContext(s.ctx, s.url, nil)
		if err != nil {
			backoff = min(backoff*2, s.maxBackoff)
			log.WithField("retry_in", backoff).Warnf("[WS] reconnect failed: %v", err)
			continue
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return false
		}
		s.conn = conn
		for room := range s.rooms {
			if err := s.writeLocked(realtime.ClientMessage{Type: realtime.TypeJoinRoom, Room: room}); err != nil {
				// the read on this connection fails too and triggers another round
				log.WithField("room", room).Warnf("[WS] rejoin failed: %v", err)
				break
			}
		}
		s.mu.Unlock()
		log.Info("[WS] subscriber reconnected")
		return true
	}
}

func (s *Subscriber) signalResync() {
	select {
	case s.resync <- struct{}{}:
	default:
	}
}

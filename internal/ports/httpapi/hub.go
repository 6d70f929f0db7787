package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bluff/internal/app"
	"bluff/internal/domain"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// Msg is the websocket envelope: T is the event kind, M its payload.
type Msg struct {
	T string `json:"t"`
	M any    `json:"m,omitempty"`
}

type client struct {
	userID string
	send   chan []byte
}

// Hub fans room events out to connected websockets. Events with recipients
// reach only those users; the rest reach everyone in the room.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	origins []string
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  map[string]map[*client]struct{}{},
		logger: logger,
	}
}

// SetOrigins restricts websocket upgrades to the given origins. A "*" or an
// empty list allows any origin.
func (h *Hub) SetOrigins(origins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = nil
	for _, o := range origins {
		if o == "*" {
			h.origins = nil
			return
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			h.origins = append(h.origins, u.Host)
		} else if o != "" {
			h.origins = append(h.origins, o)
		}
	}
}

func (h *Hub) acceptOptions() *websocket.AcceptOptions {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.origins) == 0 {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: append([]string(nil), h.origins...)}
}

// Publish delivers events to the room's subscribers without blocking; a
// subscriber whose buffer is full misses the message and can resync with
// GET /rooms/:id.
func (h *Hub) Publish(roomID string, events []app.Event) {
	if len(events) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs := h.rooms[roomID]
	if len(subs) == 0 {
		return
	}
	for _, ev := range events {
		data, err := json.Marshal(Msg{T: string(ev.Kind), M: ev.Payload})
		if err != nil {
			h.logger.Error("marshal event", zap.String("kind", string(ev.Kind)), zap.Error(err))
			continue
		}
		for c := range subs {
			if !addressedTo(ev, c.userID) {
				continue
			}
			select {
			case c.send <- data:
			default:
				h.logger.Warn("dropping event for slow client", zap.String("room_id", roomID), zap.String("user_id", c.userID))
			}
		}
	}
}

func addressedTo(ev app.Event, userID string) bool {
	if len(ev.Recipients) == 0 {
		return true
	}
	for _, r := range ev.Recipients {
		if r == userID {
			return true
		}
	}
	return false
}

// CloseRoom disconnects every subscriber of a deleted room.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	subs := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()
	for c := range subs {
		close(c.send)
	}
}

func (h *Hub) subscribe(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = map[*client]struct{}{}
		h.rooms[roomID] = subs
	}
	subs[c] = struct{}{}
}

// unsubscribe reports whether c was still registered.
func (h *Hub) unsubscribe(roomID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := subs[c]; !ok {
		return false
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
	return true
}

// ServeWS upgrades the request and streams events until either side closes.
// The first message is the caller's current view.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID, userID string, initial domain.GameView) {
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &client{userID: userID, send: make(chan []byte, sendBuffer)}
	first, err := json.Marshal(Msg{T: string(app.EventStateSync), M: app.StateSyncPayload{View: initial}})
	if err != nil {
		h.logger.Error("marshal initial view", zap.Error(err))
		return
	}
	c.send <- first
	h.subscribe(roomID, c)
	h.logger.Info("websocket connected", zap.String("room_id", roomID), zap.String("user_id", userID))
	defer func() {
		if h.unsubscribe(roomID, c) {
			close(c.send)
		}
		h.logger.Info("websocket disconnected", zap.String("room_id", roomID), zap.String("user_id", userID))
	}()

	// The feed is one-way; CloseRead discards client frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

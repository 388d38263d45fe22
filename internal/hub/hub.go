// Package hub tracks live socket connections and the rooms they joined, and
// fans encoded events out to them.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const sendBuffer = 64

// Envelope is the wire format of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn is one registered connection. The socket writer drains Messages until
// Done is closed.
type Conn struct {
	ID   string
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Messages yields encoded frames queued for this connection.
func (c *Conn) Messages() <-chan []byte { return c.send }

// Done is closed when the hub wants the connection gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) close() { c.once.Do(func() { close(c.done) }) }

// Hub is an in-process pub/sub keyed by room ID. Delivery never blocks: a
// connection whose queue is full misses the frame.
type Hub struct {
	logger *slog.Logger

	mu       sync.RWMutex
	conns    map[string]*Conn
	groups   map[string]map[string]*Conn
	memberOf map[string]map[string]struct{}
	closed   bool
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger,
		conns:    make(map[string]*Conn),
		groups:   make(map[string]map[string]*Conn),
		memberOf: make(map[string]map[string]struct{}),
	}
}

// Register adds a connection with a fresh ID. After Close it returns a
// connection that is already done.
func (h *Hub) Register() *Conn {
	c := &Conn{
		ID:   uuid.NewString(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.close()
		return c
	}
	h.conns[c.ID] = c
	return c
}

// Unregister drops the connection from every room.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.memberOf[c.ID] {
		h.leaveLocked(roomID, c.ID)
	}
	delete(h.memberOf, c.ID)
	delete(h.conns, c.ID)
	c.close()
}

// Join adds a connection to a room. Unknown connections are ignored.
func (h *Hub) Join(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	if h.groups[roomID] == nil {
		h.groups[roomID] = make(map[string]*Conn)
	}
	h.groups[roomID][connID] = c
	if h.memberOf[connID] == nil {
		h.memberOf[connID] = make(map[string]struct{})
	}
	h.memberOf[connID][roomID] = struct{}{}
}

// Leave removes a connection from a room.
func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, connID)
}

func (h *Hub) leaveLocked(roomID, connID string) {
	delete(h.groups[roomID], connID)
	if len(h.groups[roomID]) == 0 {
		delete(h.groups, roomID)
	}
	delete(h.memberOf[connID], roomID)
}

// RoomsOf lists the rooms a connection is in.
func (h *Hub) RoomsOf(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.memberOf[connID]))
	for roomID := range h.memberOf[connID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// Broadcast sends an event to every connection in a room.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	h.BroadcastExcept(roomID, "", event, payload)
}

// BroadcastExcept sends an event to every connection in a room but one.
func (h *Hub) BroadcastExcept(roomID, exceptConnID, event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.groups[roomID] {
		if id != exceptConnID {
			h.deliver(c, event, frame)
		}
	}
}

// Send delivers an event to one connection.
func (h *Hub) Send(connID, event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.conns[connID]; ok {
		h.deliver(c, event, frame)
	}
}

func (h *Hub) deliver(c *Conn, event string, frame []byte) {
	select {
	case c.send <- frame:
	default:
		// Drop if subscriber is slow.
		h.logger.Warn("dropping frame for slow connection", "conn_id", c.ID, "event", event)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error("encoding event payload", "event", event, "error", err)
			return nil, false
		}
		env.Data = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("encoding event", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close asks every connection to shut down and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, c := range h.conns {
		c.close()
	}
}

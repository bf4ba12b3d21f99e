// Package hub provides connection management for WebSocket clients.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mhrkq/RumorChat/internal/domain"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	hub  *Hub

	mu sync.Mutex // serializes writes on Conn

	// idMu guards room and name: the hub goroutine may detach a slow
	// consumer while its read pump is still handling a message
	idMu sync.RWMutex
	room string
	name string
}

// Identity returns the room and name the connection is bound to. Both are
// empty for an unbound connection.
func (c *Connection) Identity() (room, name string) {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	return c.room, c.name
}

func (c *Connection) setIdentity(room, name string) {
	c.idMu.Lock()
	c.room, c.name = room, name
	c.idMu.Unlock()
}

// Hub manages all WebSocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Rooms maps a room code to the set of connection IDs inside it
	rooms map[string]map[string]bool

	// Users maps "room/name" to the connection ID holding that identity
	users map[string]string

	// Channels for registration/unregistration
	register   chan *Connection
	unregister chan *Connection

	// Broadcast channel for sending to a room
	broadcast chan *RoomMessage

	mu sync.RWMutex
}

// RoomMessage is used to broadcast a message to every member of a room.
type RoomMessage struct {
	Room string
	Data []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]bool),
		users:       make(map[string]string),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *RoomMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			h.mu.Unlock()
			log.Printf("Connection registered: %s", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.detachLocked(conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Printf("Connection unregistered: %s", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if connIDs, ok := h.rooms[msg.Room]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						select {
						case conn.Send <- msg.Data:
						default:
							// Buffer full, close the connection
							log.Printf("Connection %s buffer full, closing", connID)
							go h.Unregister(conn)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection for the hub.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
		hub:  h,
	}
	return conn
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Bind attaches a connection to a room under a member name. It fails when
// another live connection already holds the same name in that room.
func (h *Hub) Bind(conn *Connection, room, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := userKey(room, name)
	if holder, ok := h.users[key]; ok && holder != conn.ID {
		return domain.ErrDuplicateName
	}

	h.detachLocked(conn)

	conn.setIdentity(room, name)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]bool)
	}
	h.rooms[room][conn.ID] = true
	h.users[key] = conn.ID
	return nil
}

// Unbind detaches a connection from its room without unregistering it.
func (h *Hub) Unbind(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(conn)
}

// detachLocked removes the connection from room and user indexes.
// Caller must hold h.mu.
func (h *Hub) detachLocked(conn *Connection) {
	room, name := conn.Identity()
	if room == "" {
		return
	}
	if h.rooms[room] != nil {
		delete(h.rooms[room], conn.ID)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	key := userKey(room, name)
	if h.users[key] == conn.ID {
		delete(h.users, key)
	}
	conn.setIdentity("", "")
}

// BroadcastToRoom sends a message to every connection bound to a room.
func (h *Hub) BroadcastToRoom(room string, data []byte) {
	h.broadcast <- &RoomMessage{
		Room: room,
		Data: data,
	}
}

// BroadcastJSONToRoom sends a JSON message to every connection bound to a room.
func (h *Hub) BroadcastJSONToRoom(room string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.BroadcastToRoom(room, data)
	return nil
}

// SendToUser sends a message to the connection holding an identity in a room.
func (h *Hub) SendToUser(room, name string, data []byte) error {
	h.mu.RLock()
	connID, ok := h.users[userKey(room, name)]
	conn := h.connections[connID]
	h.mu.RUnlock()

	if !ok || conn == nil {
		return ErrNotConnected
	}
	return h.SendToConnection(conn, data)
}

// SendJSONToUser sends a JSON message to the connection holding an identity.
func (h *Hub) SendJSONToUser(room, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToUser(room, name, data)
}

// SendToConnection sends a message to a specific connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetRoomCount returns the number of rooms with at least one connection.
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// HasLiveConnection checks whether an identity is held by a live connection.
func (h *Hub) HasLiveConnection(room, name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userKey(room, name)]
	return ok
}

func userKey(room, name string) string {
	return room + "/" + name
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}

// ErrNotConnected is returned when no live connection holds the identity.
var ErrNotConnected = &NotConnectedError{}

// NotConnectedError represents a send to an offline identity.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string {
	return "no live connection for identity"
}

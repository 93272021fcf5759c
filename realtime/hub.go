package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/campus-ems/utils"
)

// Event types
const (
	EventNotificationCreated = "notification_created"
	EventUnreadCount         = "unread_count"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// client serialises writes to one socket; gorilla allows a single writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks open websocket connections per user. A user may have several tabs open.
// The hub lock only guards the registry; socket writes happen outside it.
type Hub struct {
	clients map[uint]map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]map[*websocket.Conn]*client),
	}
}

func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	conns, ok := h.clients[userID]
	if !ok {
		conns = make(map[*websocket.Conn]*client)
		h.clients[userID] = conns
	}
	conns[conn] = &client{conn: conn}
}

func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.remove(userID, conn)
	conn.Close()
}

func (h *Hub) remove(userID uint, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conns, ok := h.clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

// Connections returns how many sockets a user currently has open.
func (h *Hub) Connections(userID uint) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[userID])
}

func (h *Hub) snapshot(userID uint) []*client {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	out := make([]*client, 0, len(h.clients[userID]))
	for _, c := range h.clients[userID] {
		out = append(out, c)
	}
	return out
}

// Publish sends msg to every connection of userID. Write failures drop the
// connection; delivery is best effort and clients fall back to polling.
func (h *Hub) Publish(userID uint, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling realtime message: %v", err)
		return
	}

	for _, c := range h.snapshot(userID) {
		if err := c.write(data); err != nil {
			utils.ErrorLogger.Printf("Dropping websocket for user %d: %v", userID, err)
			h.Unregister(userID, c.conn)
		}
	}
}

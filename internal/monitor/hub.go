package monitor

import (
	"context"
	"sync"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans health reports, new alerts and high-severity security events out
// to connected admin websockets. Broadcasts never block the caller; when the
// buffer is full the message is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan Message
}

func NewHub() *Hub {
	return &Hub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan Message, 16),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.ch:
			h.send(msg)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Broadcast(msg Message) {
	select {
	case h.ch <- msg:
	default:
	}
}

func (h *Hub) BroadcastHealth(report Report) {
	h.Broadcast(Message{Type: "health", Data: report})
}

func (h *Hub) BroadcastAlert(alert models.Alert) {
	h.Broadcast(Message{Type: "alert", Data: alert})
}

func (h *Hub) NotifySecurityEvent(event models.SecurityEvent) {
	h.Broadcast(Message{Type: "security", Data: event})
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) send(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

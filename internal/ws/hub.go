package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mehrbod2002/equitywatch/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const publishBuffer = 256

// Hub fans notifications out to live sessions. Agents receive notifications
// about their own accounts; admins receive all of them.
type Hub struct {
	clients map[string]*models.Client

	register chan *models.Client

	unregister chan *models.Client

	broadcast chan *models.Notification

	// done is closed once Run returns.
	done chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*models.Client),
		register:   make(chan *models.Client),
		unregister: make(chan *models.Client),
		broadcast:  make(chan *models.Notification, publishBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.Close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.Close()
			}
			h.mu.Unlock()

		case n := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if !client.Wants(n) {
					continue
				}
				select {
				case client.Send <- n:
				default:
					slog.Warn("websocket client buffer full, skipping notification", "client_id", client.ID, "type", n.Type)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, identity models.Identity) *models.Client {
	client := models.NewClient(uuid.NewString(), identity.ID.Hex(), identity.Role, conn)
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
	return client
}

func (h *Hub) UnregisterClient(client *models.Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// Publish queues n for delivery without blocking the caller. Notifications are
// dropped when the queue is full.
func (h *Hub) Publish(n *models.Notification) {
	select {
	case h.broadcast <- n:
	default:
		slog.Warn("notification queue full, dropping notification", "type", n.Type, "agent_id", n.AgentID.Hex())
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Package realtime fans order events out to connected back-office websockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront/internal/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
)

// ErrHubClosed is returned when publishing to a hub that has stopped.
var ErrHubClosed = errors.New("realtime hub is closed")

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected websocket.
type Client struct {
	ID     string
	UserID uint
	Conn   Conn
}

// Hub keeps the set of live clients and broadcasts order events to all of them.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub. Run must be started before clients register.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns, closing every client, when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			close(h.done)
			log.Info().Msg("realtime hub stopped")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Debug().Str("client_id", client.ID).Uint("user_id", client.UserID).Msg("live feed client connected")
		case client := <-h.unregister:
			h.remove(client.ID)
		case data := <-h.broadcast:
			h.send(data)
		}
	}
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		log.Debug().Str("client_id", id).Msg("live feed client disconnected")
	}
}

// send writes data to every client and drops the ones that fail.
func (h *Hub) send(data []byte) {
	h.mu.RLock()
	var failed []*Client
	for _, client := range h.clients {
		if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Str("client_id", client.ID).Msg("live feed write failed")
			failed = append(failed, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range failed {
		_ = client.Conn.Close()
		h.remove(client.ID)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		_ = client.Conn.Close()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues event for delivery to every connected client.
func (h *Hub) Broadcast(ctx context.Context, event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishOrderEvent broadcasts in-process, for deployments without a broker.
func (h *Hub) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return h.Broadcast(ctx, event)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Package hub fans presence state out to connected presenters using the
// channel-based broadcast pattern.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// ErrFull is returned when the broadcast queue is full and the message
// was dropped.
var ErrFull = errors.New("hub: broadcast queue full")

// Frame is one encoded JSON text frame.
type Frame []byte

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// mu guards the client count for readers outside the run loop
	mu sync.RWMutex

	running bool
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("hub", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client's send queue.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "client", client.id, "clients", count)
			if client.onJoin != nil {
				client.onJoin(client)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case frame := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Send(frame) {
					// Slow reader: drop it rather than stall everyone
					client.closeSend()
					delete(h.clients, client)
					h.logger.Warn("dropped slow client", "client", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
	h.running = false
}

// Done is closed once the run loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast queues f for all connected clients
func (h *Hub) Broadcast(f Frame) error {
	select {
	case h.broadcast <- f:
		return nil
	default:
		h.logger.Warn("broadcast queue full, dropping message")
		return ErrFull
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Broadcast(data)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub loop is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

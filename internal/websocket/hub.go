package websocket

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"segmentcli/internal/infrastructure"
)

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *Metrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	droppedClients   atomic.Int64

	quit    chan struct{}
	running bool
}

// NewHub creates a hub. A nil logger uses the process logger.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
	}
}

// SetMetrics attaches OpenTelemetry instruments
func (h *Hub) SetMetrics(m *Metrics) {
	h.metrics = m
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.totalConnections.Add(1)

	ctx := client.context()
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	h.metrics.recordConnection(ctx, 1)

	msg, err := NewMessage(TypeConnection, map[string]any{
		"status":    "connected",
		"client_id": client.id,
	}, client.traceID).Encode()
	if err != nil {
		return
	}
	select {
	case client.send <- msg:
	default:
		h.logger.WarnContext(ctx, "client buffer full on connect", slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
	h.metrics.recordConnection(ctx, -1)
}

func (h *Hub) fanOut(message []byte) {
	var (
		sent int
		slow []*Client
	)

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- message:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()
	h.messagesSent.Add(int64(sent))

	// clients that cannot keep up are dropped
	for _, client := range slow {
		h.droppedClients.Add(1)
		h.removeClient(client, "send buffer full")
	}

	h.metrics.recordBroadcast(context.Background(), sent, len(slow))
	h.logger.Debug("broadcast",
		slog.Int("client_count", sent+len(slow)),
		slog.Int("dropped", len(slow)),
		slog.Int("message_size", len(message)))
}

// Broadcast sends a typed message to every connected client
func (h *Hub) Broadcast(messageType string, data any) {
	h.BroadcastWithTrace(messageType, data, "")
}

// BroadcastWithTrace sends a typed message carrying a trace id
func (h *Hub) BroadcastWithTrace(messageType string, data any, traceID string) {
	msg, err := NewMessage(messageType, data, traceID).Encode()
	if err != nil {
		ctx := infrastructure.WithTraceID(context.Background(), traceID)
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("message_type", messageType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.quit:
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters
func (h *Hub) Stats() map[string]any {
	return map[string]any{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"dropped_clients":   h.droppedClients.Load(),
	}
}

// Stop ends the hub loop and closes every client send channel
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.quit)

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

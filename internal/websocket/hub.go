package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dailyindex/internal/config"
	"dailyindex/internal/infrastructure"
)

// Message types
const (
	TypeConnection = "connection"
)

const (
	defaultPingPeriod = 30 * time.Second
	defaultPongWait   = 60 * time.Second

	sendBufferSize      = 256
	broadcastBufferSize = 64
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
	TraceID   string      `json:"trace_id,omitempty"`
}

type outbound struct {
	messageType string
	payload     []byte
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithMetrics records connection and message metrics.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithConfig applies ping and pong timings.
func WithConfig(cfg config.WebSocketConfig) HubOption {
	return func(h *Hub) {
		if cfg.PingPeriod > 0 {
			h.pingPeriod = cfg.PingPeriod
		}
		if cfg.PongWait > 0 {
			h.pongWait = cfg.PongWait
		}
	}
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration

	logger  *slog.Logger
	metrics *Metrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a stopped hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = noopMetrics()
	}
	if h.pingPeriod >= h.pongWait {
		h.pingPeriod = h.pongWait * 9 / 10
	}
	return h
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.stopped {
		return
	}
	h.running = true
	go h.run()
}

// Stop terminates the hub loop and closes every client's send channel. A
// stopped hub cannot be restarted.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.stopped = true
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case msg := <-h.broadcast:
			h.fanOut(msg)
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
	h.metrics.recordConnection(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	greeting, err := encode(TypeConnection, map[string]interface{}{
		"status":    "connected",
		"message":   "Connected to the index change feed",
		"client_id": client.id,
	}, client.traceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode greeting", slog.String("error", err.Error()))
		return
	}

	select {
	case client.send <- greeting:
	default:
		h.logger.WarnContext(ctx, "client buffer full, greeting dropped",
			slog.String("client_id", client.id))
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
	duration := time.Since(client.connectedAt)
	h.metrics.recordDisconnection(ctx, duration, reason)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", duration))
}

func (h *Hub) fanOut(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	ctx := context.Background()
	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- msg.payload:
			h.messagesSent.Add(1)
			h.metrics.recordSent(ctx, msg.messageType, len(msg.payload))
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.messagesDropped.Add(1)
		h.metrics.recordDropped(ctx, msg.messageType)
		h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
			slog.String("client_id", client.id))
		h.removeClient(client, "slow_consumer")
	}

	h.logger.Debug("broadcast delivered",
		slog.String("type", msg.messageType),
		slog.Int("clients", len(clients)),
		slog.Int("dropped", len(slow)),
		slog.Int("payload_size", len(msg.payload)))
}

// Broadcast sends {"type", "timestamp", "data"} to every connected client.
// It never blocks on a stopped hub.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastWithTrace(messageType, data, "")
}

// BroadcastWithTrace is Broadcast with a trace id attached to the message.
func (h *Hub) BroadcastWithTrace(messageType string, data interface{}, traceID string) {
	payload, err := encode(messageType, data, traceID)
	if err != nil {
		h.logger.Error("failed to encode message",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		h.logger.Debug("hub not running, message dropped", slog.String("type", messageType))
		return
	}

	select {
	case h.broadcast <- outbound{messageType: messageType, payload: payload}:
	case <-h.quit:
	}
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel.
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
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"messages_dropped":  h.messagesDropped.Load(),
	}
}

func encode(messageType string, data interface{}, traceID string) ([]byte, error) {
	return json.Marshal(Message{
		Type:      messageType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
		TraceID:   traceID,
	})
}

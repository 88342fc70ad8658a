package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/observability"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Message types sent to stream clients.
const (
	TypeSnapshot = "snapshot"
	TypeStatus   = "status"
)

// clientBuffer is the per-client queue length. A client that falls further
// behind loses messages instead of stalling the pipeline.
const clientBuffer = 16

// Message is one Server-Sent Event.
type Message struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans snapshots and status messages out to connected stream clients.
type Hub struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	clients map[string]chan Message
	seq     int64
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[string]chan Message),
	}
}

// AddClient registers a client and returns its message channel. A client
// registered twice under the same id replaces the old channel.
func (h *Hub) AddClient(clientID string) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[clientID]; ok {
		close(existing)
	}
	ch := make(chan Message, clientBuffer)
	h.clients[clientID] = ch

	h.logger.Debug("stream client connected", "client", clientID, "total", len(h.clients))
	return ch
}

// RemoveClient unregisters a client and closes its channel.
func (h *Hub) RemoveClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
		h.logger.Debug("stream client disconnected", "client", clientID, "remaining", len(h.clients))
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientID, ch := range h.clients {
		close(ch)
		delete(h.clients, clientID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) PublishSnapshot(snapshot weather.Snapshot) {
	h.broadcast(TypeSnapshot, snapshot, snapshot.UpdatedAt)
}

func (h *Hub) PublishStatus(status weather.Status) {
	h.broadcast(TypeStatus, status, status.Time)
}

// broadcast never blocks: a full client queue drops the message.
func (h *Hub) broadcast(typ string, data any, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	h.seq++
	msg := Message{ID: h.seq, Type: typ, Data: data, Timestamp: ts}

	for clientID, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.metrics.SinkDropped.WithLabelValues("sse").Inc()
			h.logger.Debug("stream client queue full, dropping message", "client", clientID, "type", typ)
		}
	}
}

// Format renders msg in the text/event-stream wire format.
func Format(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", msg.Type, err)
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, data)), nil
}

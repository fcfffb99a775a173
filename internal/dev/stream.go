package dev

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/qstate/internal/replay"
)

// StreamMessageType represents the type of stream message.
type StreamMessageType string

const (
	StreamTypeEvents StreamMessageType = "events"
	StreamTypeError  StreamMessageType = "error"
)

// StreamMessage is sent to clients via WebSocket.
type StreamMessage struct {
	Type   StreamMessageType `json:"type"`
	Events []replay.Event    `json:"events,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// StreamServer fans replay events out to WebSocket clients.
type StreamServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
}

// NewStreamServer creates a new stream server.
func NewStreamServer() *StreamServer {
	return &StreamServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (r *StreamServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	r.mu.Unlock()

	// Keep connection alive until client disconnects
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}

	r.mu.Lock()
	delete(r.clients, conn)
	r.mu.Unlock()
	conn.Close()
}

// NotifyEvents sends a batch of replay events to all clients.
func (r *StreamServer) NotifyEvents(events []replay.Event) {
	if len(events) == 0 {
		return
	}
	r.broadcast(StreamMessage{Type: StreamTypeEvents, Events: events})
}

// NotifyError sends an error message to all clients.
func (r *StreamServer) NotifyError(errMsg string) {
	r.broadcast(StreamMessage{Type: StreamTypeError, Error: errMsg})
}

// broadcast sends a message to all connected clients.
func (r *StreamServer) broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	// Connections support one concurrent writer.
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	for _, client := range clients {
		err := client.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			r.mu.Lock()
			delete(r.clients, client)
			r.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (r *StreamServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *StreamServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
}

package metrics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"crossbot/src/datamodels"
)

// WebsocketMetricsWriter broadcasts every metric to the connected clients. A client whose
// write fails is dropped.
type WebsocketMetricsWriter struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewWebSocketMetricsWriter creates a new WebSocketMetricsWriter
func NewWebSocketMetricsWriter() *WebsocketMetricsWriter {
	return &WebsocketMetricsWriter{
		clients: make(map[*websocket.Conn]bool),
	}
}

// AddClient adds a new client connection
func (w *WebsocketMetricsWriter) AddClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[conn] = true
}

// RemoveClient removes a client connection
func (w *WebsocketMetricsWriter) RemoveClient(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.clients, conn)
}

// WriteTo sends a direct reply to one client without racing a broadcast.
func (w *WebsocketMetricsWriter) WriteTo(conn *websocket.Conn, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return conn.WriteJSON(v)
}

func (w *WebsocketMetricsWriter) ClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

func (w *WebsocketMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	message := metricLine(metric)
	for client := range w.clients {
		if err := client.WriteJSON(message); err != nil {
			slog.Warn("Dropping websocket client", "remote", client.RemoteAddr().String(), "error", err)
			client.Close()
			delete(w.clients, client)
		}
	}
	return nil
}

func (w *WebsocketMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for client := range w.clients {
		client.Close()
	}
	w.clients = make(map[*websocket.Conn]bool)
	return nil
}

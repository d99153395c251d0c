package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"crossbot/src/config"
	"crossbot/src/database"
	"crossbot/src/datamodels"
	"crossbot/src/metrics"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

type Server struct {
	addr          string
	serverConfig  datamodels.ServerConfig
	upgrader      websocket.Upgrader
	metricsWriter *metrics.WebsocketMetricsWriter
	runsDb        database.RunsDatabase
}

func NewServer(serverConfig datamodels.ServerConfig) *Server {
	if serverConfig.HealthEndpoint == "" {
		serverConfig.HealthEndpoint = "/health"
	}
	if serverConfig.MetricsEndpoint == "" {
		serverConfig.MetricsEndpoint = "/ws"
	}
	return &Server{
		addr:         config.ServerAddr(serverConfig),
		serverConfig: serverConfig,
		upgrader:     config.NewDefaultUpgrader(),
	}
}

func (s *Server) WithMetricsWriter(metricsWriter *metrics.WebsocketMetricsWriter) *Server {
	s.metricsWriter = metricsWriter
	return s
}

// WithRunsDatabase makes every API backtest persist its run and trade log.
func (s *Server) WithRunsDatabase(db database.RunsDatabase) *Server {
	s.runsDb = db
	return s
}

// Handler returns the mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHealthCheck(mux)
	s.RegisterVersion(mux)
	s.RegisterWebSocketHandler(mux)
	s.RegisterBacktest(mux)
	s.RegisterSwagger(mux)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if s.metricsWriter == nil {
		return errors.New("metrics writer is nil")
	}
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		if err := server.Close(); err != nil {
			slog.Error("Failed to close server", "error", err)
		}
	}()

	slog.Info(fmt.Sprintf("Starting server on %s", s.addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	// welcome message goes out before the client can receive broadcasts
	welcomeMessage := WebSocketResponse{
		Success: true,
		Data:    "Welcome to the Crossbot WebSocket server",
	}
	if err := conn.WriteJSON(welcomeMessage); err != nil {
		slog.Error("Failed to send welcome message", "error", err)
		return
	}

	if s.metricsWriter != nil {
		s.metricsWriter.AddClient(conn)
		defer s.metricsWriter.RemoveClient(conn)
	}
	slog.Info("Client connected", "remote", r.RemoteAddr)

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("Websocket read ended", "error", err)
			break
		}
		if mType != websocket.TextMessage {
			slog.Info(fmt.Sprintf("Ignoring websocket message type: %d", mType))
			continue
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(msg, &wsMessage); err != nil {
			slog.Error("Failed to unmarshal message", "error", err)
			continue
		}

		switch wsMessage.MessageType {
		case Backtest:
			slog.Info("Server websocket received backtest message")
			response := s.handleBacktestMessage(r.Context(), wsMessage.Message)
			if err := s.writeToClient(conn, response); err != nil {
				slog.Error("Failed to send backtest response", "error", err)
				return
			}
		default:
			slog.Info(fmt.Sprintf("Received unknown message type: %s", wsMessage.MessageType))
		}
	}
}

// writeToClient serialises direct replies with the broadcast writer, which owns the
// connection's write side once the client is registered.
func (s *Server) writeToClient(conn *websocket.Conn, response WebSocketResponse) error {
	if s.metricsWriter == nil {
		return conn.WriteJSON(response)
	}
	return s.metricsWriter.WriteTo(conn, response)
}

// StartHeartbeat logs the process resource usage until ctx is done.
func StartHeartbeat(ctx context.Context, interval time.Duration) {
	timer := time.NewTicker(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down heartbeat")
			return
		case <-timer.C:
			usage := general.GetSystemUsage()
			slog.Info("Heartbeat",
				"goroutines", usage["num_goroutine"],
				"heap_alloc", usage["memory_heap_alloc"])
		}
	}
}

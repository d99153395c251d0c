package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"crossbot/src/backtester"
	"crossbot/src/datamodels"
	"crossbot/src/metrics"
	"crossbot/src/utils/errors"
	"crossbot/src/version"
)

// @title Crossbot API
// @version 1.0
// @description API server for the Crossbot moving average crossover backtester
// @host localhost:8080
// @BasePath /

// WebSocketMessageType represents the type of WebSocket message
// @Description Type of message being sent over WebSocket connection
type WebSocketMessageType string

const (
	// Backtest message type for running a backtest over the socket
	Backtest WebSocketMessageType = "backtest"
)

// WebSocketMessage represents a message sent over WebSocket
// @Description Message structure for WebSocket communication
type WebSocketMessage struct {
	// Type of the WebSocket message
	// Required: true
	// Enum: backtest
	MessageType WebSocketMessageType `json:"message_type" example:"backtest"`
	// Raw JSON message payload
	// Required: true
	Message json.RawMessage `json:"message"`
}

// WebSocketResponse represents a response sent back over WebSocket or HTTP
// @Description Response structure for API and WebSocket communication
type WebSocketResponse struct {
	// Whether the operation was successful
	// Required: true
	Success bool `json:"success" example:"true"`
	// Response payload data
	// Required: false
	Data any `json:"data"`
	// Error message if operation failed
	// Required: false
	Error string `json:"error,omitempty" example:"invalid parameter: short_window: must be a positive integer, got 0"`
	// Offending input field for validation errors
	// Required: false
	Field string `json:"field,omitempty" example:"short_window"`
}

// BacktestRequest is a bar series plus the strategy windows to evaluate it with
// @Description Backtest input
type BacktestRequest struct {
	Symbol      string           `json:"symbol" example:"SPY"`
	ShortWindow int              `json:"short_window" example:"20"`
	LongWindow  int              `json:"long_window" example:"50"`
	MinPeriods  int              `json:"min_periods" example:"0"`
	Bars        []datamodels.Bar `json:"bars"`
}

func (b BacktestRequest) StrategyConfig() datamodels.StrategyConfig {
	return datamodels.StrategyConfig{
		Type:        datamodels.StrategyTypeMovingAverageCrossover,
		ShortWindow: b.ShortWindow,
		LongWindow:  b.LongWindow,
		MinPeriods:  b.MinPeriods,
	}
}

// RegisterHealthCheck registers the health check endpoint
// @Summary Health check endpoint
// @Description Returns health status of the Crossbot service
// @Tags health
// @Produce plain
// @Success 200 {string} string "Crossbot is healthy"
// @Router /health [get]
func (s *Server) RegisterHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc(s.serverConfig.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Crossbot is healthy"))
	})
}

// RegisterVersion registers the build info endpoint
// @Summary Build info
// @Description Returns commit, version and build settings
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /version [get]
func (s *Server) RegisterVersion(mux *http.ServeMux) {
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.GetBuildInfo())
	})
}

// RegisterWebSocketHandler registers the WebSocket endpoint
// @Summary WebSocket connection endpoint
// @Description Streams backtest metrics to connected clients and accepts backtest messages
// @Tags websocket
// @Accept json
// @Produce json
// @Success 101 {string} string "Switching protocols to websocket"
// @Router /ws [get]
func (s *Server) RegisterWebSocketHandler(mux *http.ServeMux) {
	mux.HandleFunc(s.serverConfig.MetricsEndpoint, s.handleWebSocket)
}

// RegisterBacktest registers the backtest endpoint
// @Summary Run a backtest
// @Description Generates crossover signals for the bars, backtests them and returns the report
// @Tags backtest
// @Accept json
// @Produce json
// @Param request body BacktestRequest true "Bars and strategy windows"
// @Success 200 {object} WebSocketResponse
// @Failure 400 {object} WebSocketResponse
// @Failure 500 {object} WebSocketResponse
// @Router /backtest [post]
func (s *Server) RegisterBacktest(mux *http.ServeMux) {
	mux.HandleFunc("/backtest", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, WebSocketResponse{Error: "method not allowed"})
			return
		}
		var request BacktestRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			response := errorResponse(err)
			response.Error = "malformed request body: " + response.Error
			writeJSON(w, http.StatusBadRequest, response)
			return
		}
		report, err := s.runBacktest(r.Context(), request)
		if err != nil {
			writeJSON(w, statusFor(err), errorResponse(err))
			return
		}
		writeJSON(w, http.StatusOK, WebSocketResponse{Success: true, Data: report})
	})
}

// RegisterSwagger registers the Swagger documentation endpoint
// @Summary Swagger documentation endpoint
// @Description Serves Swagger API documentation UI and JSON spec
// @Tags docs
// @Accept json
// @Produce json,html
// @Success 200 {string} string "Swagger documentation UI"
// @Router /swagger [get]
func (s *Server) RegisterSwagger(mux *http.ServeMux) {
	mux.HandleFunc("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// handleBacktestMessage runs a backtest requested over WebSocket
// @Description Handles a backtest request over the WebSocket connection
// @Accept json
// @Produce json
// @Param payload body BacktestRequest true "Backtest payload"
// @Success 200 {object} WebSocketResponse
// @Failure 400 {object} WebSocketResponse
func (s *Server) handleBacktestMessage(ctx context.Context, payload []byte) WebSocketResponse {
	var request BacktestRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		slog.Error("Failed to unmarshal backtest payload", "error", err)
		return errorResponse(err)
	}
	report, err := s.runBacktest(ctx, request)
	if err != nil {
		return errorResponse(err)
	}
	return WebSocketResponse{
		Success: true,
		Data:    report,
	}
}

// runBacktest evaluates the request, then broadcasts and persists the result. Sink
// failures are logged and do not fail the request.
func (s *Server) runBacktest(ctx context.Context, request BacktestRequest) (*datamodels.BacktestReport, error) {
	report, err := backtester.Evaluate(request.Symbol, request.Bars, request.StrategyConfig())
	if err != nil {
		slog.Warn("Backtest request rejected", "symbol", request.Symbol, "error", err)
		return nil, err
	}
	if s.metricsWriter != nil {
		if err := metrics.WriteReport(ctx, s.metricsWriter, report); err != nil {
			slog.Error("Failed to broadcast report metrics", "run_id", report.RunId, "error", err)
		}
	}
	if s.runsDb != nil {
		if _, err := s.runsDb.WriteBacktestRun(ctx, report); err != nil {
			slog.Error("Failed to persist backtest run", "run_id", report.RunId, "error", err)
		}
	}
	return report, nil
}

func statusFor(err error) int {
	if errors.Is(err, errors.ErrInvalidParameter) || errors.Is(err, errors.ErrMissingField) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorResponse(err error) WebSocketResponse {
	response := WebSocketResponse{Success: false, Error: err.Error()}
	if field, ok := errors.FieldOf(err); ok {
		response.Field = field
	}
	return response
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crossbot/src/config"
	"crossbot/src/database"
	"crossbot/src/metrics"
	"crossbot/src/server"
	"crossbot/src/utils/general"
	"crossbot/src/version"
)

func main() {
	general.InitializeLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	crossbotConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Ramping up Crossbot", "version", version.Version, "commit", version.Commit)

	wsWriter := metrics.NewWebSocketMetricsWriter()
	defer wsWriter.Close()

	// Create and configure the server
	srv := server.NewServer(crossbotConfig.ServerConfig).WithMetricsWriter(wsWriter)
	if crossbotConfig.DatabaseConfig.IsConfigured() {
		db, err := database.NewDBConnection(crossbotConfig.DatabaseConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		srv = srv.WithRunsDatabase(db)
	}

	// Start the server
	go func() {
		slog.Info("Starting server")
		if err := srv.Start(ctx); err != nil {
			slog.Error("Server failed", "error", err)
			cancel()
		}
	}()

	go server.StartHeartbeat(ctx, time.Minute)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
}

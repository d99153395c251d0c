package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"crossbot/src/config"
	"crossbot/src/datamodels"
	"crossbot/src/utils/general"
	"crossbot/src/version"
)

func main() {
	general.InitializeLogging()

	showVersion := flag.Bool("version", false, "print build info and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Summary())
		return
	}

	// get config filepath from first arg, falling back to CONFIG_PATH
	crossbotConfig, crossbotConfigErr := loadConfig(flag.Args())
	if crossbotConfigErr != nil {
		slog.Error("Failed to load config", "error", crossbotConfigErr)
		os.Exit(1)
	}
	if err := config.Validate(crossbotConfig); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := buildDependencies(crossbotConfig)
	if err != nil {
		slog.Error("Failed to build dependencies", "error", err)
		os.Exit(1)
	}

	outcome, err := runBacktest(ctx, crossbotConfig, deps)
	deps.Close()
	if err != nil {
		slog.Error("Backtest failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Latest signal",
		"symbol", crossbotConfig.Symbol,
		"signal", outcome.Report.LatestSignal().String(),
		"run_id", outcome.Report.RunId,
		"artifacts", len(outcome.Artifacts))
}

func loadConfig(args []string) (*datamodels.CrossbotConfig, error) {
	if len(args) > 0 {
		slog.Info("Using config file", "path", args[0])
		return config.LoadFile(args[0])
	}
	return config.Load()
}

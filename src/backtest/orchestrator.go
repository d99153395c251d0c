package main

import (
	"context"
	"log/slog"
	"path"

	"crossbot/src/backtester"
	"crossbot/src/database"
	"crossbot/src/datamodels"
	"crossbot/src/feeds"
	"crossbot/src/metrics"
	"crossbot/src/portfolio"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

// uploadFunc matches general.UploadFileToBucket so tests can capture uploads.
type uploadFunc func(ctx context.Context, localPath, bucketName, objectPath string) error

type dependencies struct {
	db            database.CrossbotDatabase
	metricsWriter metrics.MetricsWriter
	upload        uploadFunc
}

func (d *dependencies) Close() {
	if d.metricsWriter != nil {
		if err := d.metricsWriter.Close(); err != nil {
			slog.Error("Failed to close metrics writer", "error", err)
		}
	}
}

type backtestOutcome struct {
	Report    *datamodels.BacktestReport
	Artifacts []string
}

func buildDependencies(cfg *datamodels.CrossbotConfig) (*dependencies, error) {
	deps := &dependencies{upload: general.UploadFileToBucket}

	if cfg.DatabaseConfig.IsConfigured() {
		db, err := database.NewDBConnection(cfg.DatabaseConfig)
		if err != nil {
			return nil, err
		}
		deps.db = db
	}

	writerDeps := metrics.WriterDeps{Influx: cfg.InfluxConfig}
	if deps.db != nil {
		writerDeps.Db = deps.db
	}
	metricsWriter, err := metrics.BuildMetricsWriter(cfg.MetricsWriter, writerDeps)
	if err != nil {
		return nil, err
	}
	deps.metricsWriter = metricsWriter
	return deps, nil
}

// runBacktest loads the bars, evaluates them and hands the report to every configured
// collaborator. Only loading and evaluation failures abort the run.
func runBacktest(ctx context.Context, cfg *datamodels.CrossbotConfig, deps *dependencies) (*backtestOutcome, error) {
	feed, err := feeds.NewBarFeedFromConfig(cfg.DataConfig)
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to create bar feed"), err)
	}
	bars, err := feed.Load()
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to load bars"), err)
	}

	report, err := backtester.Evaluate(cfg.Symbol, bars, cfg.StrategyConfig)
	if err != nil {
		return nil, err
	}
	outcome := &backtestOutcome{Report: report}

	tradeLogPath, err := portfolio.ExportTradeLog(cfg.OutputConfig.Dir, cfg.OutputConfig.ModelName, report.Ledger, cfg.OutputConfig.DateLayout)
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to export trade log"), err)
	}
	outcome.Artifacts = append(outcome.Artifacts, tradeLogPath)

	outcome.Artifacts = append(outcome.Artifacts, writePlots(cfg.OutputConfig, report)...)

	if deps.metricsWriter != nil {
		if err := metrics.WriteReport(ctx, deps.metricsWriter, report); err != nil {
			slog.Error("Failed to write report metrics", "run_id", report.RunId, "error", err)
		}
	}

	if deps.db != nil {
		if _, err := deps.db.WriteBacktestRun(ctx, report); err != nil {
			slog.Error("Failed to persist backtest run", "run_id", report.RunId, "error", err)
		}
	}

	if cfg.StorageConfig.Bucket != "" && deps.upload != nil {
		prefix := path.Join(cfg.StorageConfig.Prefix, report.RunId)
		for _, artifact := range outcome.Artifacts {
			objectPath := general.ObjectPath(prefix, artifact)
			if err := deps.upload(ctx, artifact, cfg.StorageConfig.Bucket, objectPath); err != nil {
				slog.Error("Failed to upload artifact", "file", artifact, "bucket", cfg.StorageConfig.Bucket, "error", err)
			}
		}
	}

	return outcome, nil
}

func writePlots(output datamodels.OutputConfig, report *datamodels.BacktestReport) []string {
	if output.PlotDir == "" || len(report.Signals) == 0 {
		return nil
	}
	plotter := metrics.NewReportPlotter().WithFileOutput(output.PlotDir)
	var written []string
	if equityPath, err := plotter.PlotEquityCurve(report); err != nil {
		slog.Error("Failed to plot equity curve", "error", err)
	} else {
		written = append(written, equityPath)
	}
	if signalsPath, err := plotter.PlotSignals(report); err != nil {
		slog.Error("Failed to plot signals", "error", err)
	} else {
		written = append(written, signalsPath)
	}
	return written
}

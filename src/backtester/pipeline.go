package backtester

import (
	"log/slog"

	"github.com/google/uuid"

	"crossbot/src/datamodels"
	"crossbot/src/metrics"
	"crossbot/src/portfolio"
	"crossbot/src/strategies"
	"crossbot/src/utils/errors"
)

// Evaluate runs the whole pipeline on one bar series: signals, then the backtest and
// its metrics, then the trade ledger. Any stage error aborts the run.
func Evaluate(symbol string, bars []datamodels.Bar, cfg datamodels.StrategyConfig) (*datamodels.BacktestReport, error) {
	generator, err := strategies.NewSignalGenerator(cfg)
	if err != nil {
		return nil, err
	}

	signals, err := generator.Generate(bars)
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to generate signals"), err)
	}

	backtest, err := Run(signals)
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to run backtest"), err)
	}

	var performance datamodels.PerformanceMetrics
	if len(backtest) > 0 {
		performance, err = metrics.Evaluate(backtest)
		if err != nil {
			return nil, errors.WrapE(errors.New("failed to evaluate performance"), err)
		}
	} else {
		slog.Warn("No rows left after warm-up, metrics are empty", "symbol", symbol, "bars", len(bars))
	}

	ledger, err := portfolio.BuildTradeLedger(signals)
	if err != nil {
		return nil, errors.WrapE(errors.New("failed to build trade ledger"), err)
	}

	if cfg.Type == "" {
		cfg.Type = datamodels.StrategyTypeMovingAverageCrossover
	}
	report := &datamodels.BacktestReport{
		RunId:    uuid.New().String(),
		Symbol:   symbol,
		Strategy: cfg,
		Signals:  signals,
		Backtest: backtest,
		Metrics:  performance,
		Ledger:   ledger,
	}

	slog.Info("Backtest complete",
		"run_id", report.RunId,
		"symbol", symbol,
		"strategy", generator.GetName(),
		"bars", len(bars),
		"signals", len(signals),
		"trades", len(ledger.Trades),
		"total_profit_loss", ledger.TotalProfitLoss,
		"latest_signal", report.LatestSignal().String())

	return report, nil
}

package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

type RunsDatabase interface {
	WriteBacktestRun(ctx context.Context, report *datamodels.BacktestReport) (uuid.UUID, error)
	GetBacktestRun(ctx context.Context, runId uuid.UUID) (*datamodels.BacktestRun, error)
	GetTradeLog(ctx context.Context, runId uuid.UUID) ([]datamodels.TradeLogEntry, error)
}

// RunFromReport flattens a report into its run header and trade log rows.
func RunFromReport(report *datamodels.BacktestReport) (datamodels.BacktestRun, []datamodels.TradeLogEntry, error) {
	if report == nil {
		return datamodels.BacktestRun{}, nil, errors.InvalidParameter("report", "must not be nil")
	}
	runId, err := uuid.Parse(report.RunId)
	if err != nil {
		return datamodels.BacktestRun{}, nil, errors.InvalidParameter("run_id", "not a uuid: %v", err)
	}

	run := datamodels.BacktestRun{
		Symbol:          report.Symbol,
		StrategyType:    string(report.Strategy.Type),
		ShortWindow:     report.Strategy.ShortWindow,
		LongWindow:      report.Strategy.LongWindow,
		MinPeriods:      report.Strategy.MinPeriods,
		SignalCount:     len(report.Signals),
		SharpeRatio:     report.Metrics.SharpeRatio,
		MaxDrawdown:     report.Metrics.MaxDrawdown,
		FinalReturn:     report.Metrics.FinalReturn,
		TotalProfitLoss: report.Ledger.TotalProfitLoss,
		OpenPositions:   report.Ledger.OpenPositions,
	}
	run.ID = runId
	if len(report.Signals) > 0 {
		run.StartTimestamp = report.Signals[0].Timestamp
		run.EndTimestamp = report.Signals[len(report.Signals)-1].Timestamp
	}

	entries := make([]datamodels.TradeLogEntry, len(report.Ledger.Trades))
	for i, trade := range report.Ledger.Trades {
		entries[i] = datamodels.TradeLogEntry{
			RunId:      runId,
			Sequence:   i,
			Timestamp:  trade.Timestamp,
			TradeType:  trade.Type,
			Price:      trade.Price,
			Quantity:   trade.Quantity,
			ProfitLoss: trade.ProfitLoss,
		}
	}
	return run, entries, nil
}

// WriteBacktestRun stores the run header and its trade log in one transaction.
func (d *databaseImplementation) WriteBacktestRun(ctx context.Context, report *datamodels.BacktestReport) (uuid.UUID, error) {
	run, entries, err := RunFromReport(report)
	if err != nil {
		return uuid.Nil, err
	}

	batchSize := 5000
	err = d.gormDb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return errors.Wrap(err, "failed to insert backtest run")
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(entries, batchSize).Error; err != nil {
			return errors.Wrap(err, "failed to insert trade log")
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

func (d *databaseImplementation) GetBacktestRun(ctx context.Context, runId uuid.UUID) (*datamodels.BacktestRun, error) {
	var run datamodels.BacktestRun
	if err := d.gormDb.WithContext(ctx).Where("id = ?", runId).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *databaseImplementation) GetTradeLog(ctx context.Context, runId uuid.UUID) ([]datamodels.TradeLogEntry, error) {
	var entries []datamodels.TradeLogEntry
	err := d.gormDb.WithContext(ctx).
		Where("run_id = ?", runId).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}

package strategies

import (
	"log/slog"
	"math"

	"crossbot/src/aggregators"
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// SignalGenerator turns an ordered bar series into a signal series.
type SignalGenerator interface {
	Generate(bars []datamodels.Bar) ([]datamodels.SignalPoint, error)
	GetName() string
}

// NewSignalGenerator builds the generator named by cfg.Type. An empty type selects the
// moving average crossover.
func NewSignalGenerator(cfg datamodels.StrategyConfig) (SignalGenerator, error) {
	switch cfg.Type {
	case "", datamodels.StrategyTypeMovingAverageCrossover:
		return NewMovingAverageCrossover(cfg)
	default:
		return nil, errors.InvalidParameter("type", "unknown strategy type %q", cfg.Type)
	}
}

// MovingAverageCrossover emits a buy on the bar where the short average crosses above the
// long average and a sell on the bar where it crosses below. Persisting trends emit nothing.
type MovingAverageCrossover struct {
	shortWindow int
	longWindow  int
	minPeriods  int
	meanFunc    aggregators.SeriesFunction
}

func NewMovingAverageCrossover(cfg datamodels.StrategyConfig) (*MovingAverageCrossover, error) {
	if err := ValidateStrategyConfig(cfg); err != nil {
		return nil, err
	}
	meanFunc := aggregators.MeanFunc
	if cfg.MinPeriods > 0 {
		meanFunc = aggregators.CreateMinPeriodsMeanFunc(cfg.MinPeriods)
	}
	return &MovingAverageCrossover{
		shortWindow: cfg.ShortWindow,
		longWindow:  cfg.LongWindow,
		minPeriods:  cfg.MinPeriods,
		meanFunc:    meanFunc,
	}, nil
}

func ValidateStrategyConfig(cfg datamodels.StrategyConfig) error {
	if cfg.ShortWindow <= 0 {
		return errors.InvalidParameter("short_window", "must be a positive integer, got %d", cfg.ShortWindow)
	}
	if cfg.LongWindow <= 0 {
		return errors.InvalidParameter("long_window", "must be a positive integer, got %d", cfg.LongWindow)
	}
	if cfg.ShortWindow >= cfg.LongWindow {
		return errors.InvalidParameter("short_window", "must be less than long_window (%d >= %d)", cfg.ShortWindow, cfg.LongWindow)
	}
	if cfg.MinPeriods < 0 || cfg.MinPeriods > cfg.ShortWindow {
		return errors.InvalidParameter("min_periods", "must be 0 or in [1, %d], got %d", cfg.ShortWindow, cfg.MinPeriods)
	}
	return nil
}

func (m *MovingAverageCrossover) GetName() string {
	return string(datamodels.StrategyTypeMovingAverageCrossover)
}

func (m *MovingAverageCrossover) Generate(bars []datamodels.Bar) ([]datamodels.SignalPoint, error) {
	if err := validateBars(bars); err != nil {
		return nil, err
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	shortMa, err := m.meanFunc(closes, m.shortWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute short moving average")
	}
	longMa, err := m.meanFunc(closes, m.longWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute long moving average")
	}

	// a row is emitted once both averages are defined
	start := longMa.Start
	if shortMa.Start > start {
		start = shortMa.Start
	}
	if start >= len(bars) {
		slog.Warn("Not enough bars to emit any signal", "bars", len(bars), "long_window", m.longWindow)
		return []datamodels.SignalPoint{}, nil
	}

	points := make([]datamodels.SignalPoint, 0, len(bars)-start)
	for i := start; i < len(bars); i++ {
		signal := datamodels.SignalHold
		if i > start {
			signal = crossover(shortMa.Values[i-1], longMa.Values[i-1], shortMa.Values[i], longMa.Values[i])
		}
		points = append(points, datamodels.SignalPoint{
			Timestamp: bars[i].Timestamp,
			Close:     bars[i].Close,
			ShortMa:   shortMa.Values[i],
			LongMa:    longMa.Values[i],
			Signal:    signal,
		})
	}
	return points, nil
}

// crossover compares the previous and current relation of the two averages.
func crossover(prevShort, prevLong, short, long float64) datamodels.SignalType {
	switch {
	case short > long && prevShort <= prevLong:
		return datamodels.SignalBuy
	case short < long && prevShort >= prevLong:
		return datamodels.SignalSell
	default:
		return datamodels.SignalHold
	}
}

func validateBars(bars []datamodels.Bar) error {
	if len(bars) == 0 {
		return errors.InvalidParameter("bars", "must not be empty")
	}
	for i, bar := range bars {
		if bar.Timestamp.IsZero() {
			return errors.MissingField("timestamp")
		}
		if math.IsNaN(bar.Close) {
			return errors.MissingField("close")
		}
		if math.IsInf(bar.Close, 0) || bar.Close < 0 {
			return errors.InvalidParameter("close", "must be a non-negative finite number at bar %d, got %v", i, bar.Close)
		}
		if i > 0 && !bar.Timestamp.After(bars[i-1].Timestamp) {
			return errors.InvalidParameter("timestamp", "must be strictly increasing at bar %d", i)
		}
	}
	return nil
}

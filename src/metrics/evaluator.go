package metrics

import (
	"math"

	"github.com/montanaflynn/stats"

	"crossbot/src/aggregators"
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// TradingDaysPerYear annualises the Sharpe ratio; bars are assumed to be daily.
const TradingDaysPerYear = 252

// Evaluate scores a backtest. A return series that is empty or has zero variance has no
// Sharpe ratio and reports it as nil. Drawdown and final return are always defined for a
// non-empty backtest: a flat equity curve with a nil Sharpe ratio still reports a max
// drawdown of 0.
func Evaluate(backtest []datamodels.BacktestPoint) (datamodels.PerformanceMetrics, error) {
	if len(backtest) == 0 {
		return datamodels.PerformanceMetrics{}, errors.InvalidParameter("backtest", "must not be empty")
	}

	returns := make([]float64, 0, len(backtest))
	cumulative := make([]float64, len(backtest))
	for i, p := range backtest {
		if p.StrategyReturn != nil {
			returns = append(returns, *p.StrategyReturn)
		}
		cumulative[i] = p.CumulativeReturn
	}

	sharpe, err := SharpeRatio(returns)
	if err != nil {
		return datamodels.PerformanceMetrics{}, err
	}

	return datamodels.PerformanceMetrics{
		SharpeRatio: sharpe,
		MaxDrawdown: datamodels.Float64Ptr(MaxDrawdown(cumulative)),
		FinalReturn: datamodels.Float64Ptr(cumulative[len(cumulative)-1]),
	}, nil
}

// SharpeRatio is mean/population standard deviation, annualised with TradingDaysPerYear.
// It returns nil for a degenerate series.
func SharpeRatio(returns []float64) (*float64, error) {
	if len(returns) == 0 {
		return nil, nil
	}
	std, err := stats.StandardDeviationPopulation(returns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute return standard deviation")
	}
	if std == 0 {
		return nil, nil
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute mean return")
	}
	sharpe := mean / std * math.Sqrt(TradingDaysPerYear)
	return &sharpe, nil
}

// MaxDrawdown returns the deepest decline from a running peak as a fraction in [-1, 0].
func MaxDrawdown(equity []float64) float64 {
	peaks := aggregators.CumulativeMaxFunc(equity)
	maxDrawdown := 0.0
	for i, value := range equity {
		if peaks[i] <= 0 {
			continue
		}
		drawdown := (value - peaks[i]) / peaks[i]
		if drawdown < maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

package backtester

import (
	"crossbot/src/aggregators"
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// Run simulates the signal series bar by bar. The return earned on bar t is the market
// return of bar t scaled by the signal observed on bar t-1, so no bar ever trades on its
// own close. Undefined returns compound as zero from a base of 1.0.
func Run(signals []datamodels.SignalPoint) ([]datamodels.BacktestPoint, error) {
	for i, p := range signals {
		if p.Timestamp.IsZero() {
			return nil, errors.MissingField("timestamp")
		}
		if !p.Signal.IsValid() {
			return nil, errors.InvalidParameter("signal", "must be -1, 0 or 1 at row %d, got %d", i, p.Signal)
		}
	}

	closes := make([]float64, len(signals))
	for i, p := range signals {
		closes[i] = p.Close
	}
	marketReturns := aggregators.PctChangeFunc(closes)

	points := make([]datamodels.BacktestPoint, len(signals))
	cumulative := 1.0
	for i, p := range signals {
		var strategyReturn *float64
		if i > 0 && marketReturns[i] != nil {
			r := *marketReturns[i] * float64(signals[i-1].Signal)
			strategyReturn = &r
		}
		if strategyReturn != nil {
			cumulative *= 1 + *strategyReturn
		}
		points[i] = datamodels.BacktestPoint{
			Timestamp:        p.Timestamp,
			MarketReturn:     marketReturns[i],
			StrategyReturn:   strategyReturn,
			CumulativeReturn: cumulative,
		}
	}
	return points, nil
}

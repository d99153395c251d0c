package datamodels

import (
	"encoding/json"
	"time"

	"crossbot/src/utils/errors"
)

// Bar is one OHLCV observation. Bars are supplied in strictly increasing timestamp order.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// UnmarshalJSON requires close to be present. An absent close must not read as a price
// of zero.
func (b *Bar) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp time.Time `json:"timestamp"`
		Open      float64   `json:"open"`
		High      float64   `json:"high"`
		Low       float64   `json:"low"`
		Close     *float64  `json:"close"`
		Volume    float64   `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Close == nil {
		return errors.MissingField("close")
	}
	*b = Bar{
		Timestamp: raw.Timestamp,
		Open:      raw.Open,
		High:      raw.High,
		Low:       raw.Low,
		Close:     *raw.Close,
		Volume:    raw.Volume,
	}
	return nil
}

type SignalType int

const (
	SignalSell SignalType = -1
	SignalHold SignalType = 0
	SignalBuy  SignalType = 1
)

func (s SignalType) IsValid() bool {
	return s == SignalSell || s == SignalHold || s == SignalBuy
}

func (s SignalType) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalHold:
		return "hold"
	default:
		return "unknown"
	}
}

// SignalPoint is a bar annotated with both moving averages and the crossover event
// observed at that bar. Signal is non-zero only on the bar where a crossing happens.
type SignalPoint struct {
	Timestamp time.Time  `json:"timestamp"`
	Close     float64    `json:"close"`
	ShortMa   float64    `json:"short_ma"`
	LongMa    float64    `json:"long_ma"`
	Signal    SignalType `json:"signal"`
}

// BacktestPoint holds the simulated returns for one bar. A nil return is undefined
// (first bar) and compounds as zero.
type BacktestPoint struct {
	Timestamp        time.Time `json:"timestamp"`
	MarketReturn     *float64  `json:"market_return"`
	StrategyReturn   *float64  `json:"strategy_return"`
	CumulativeReturn float64   `json:"cumulative_return"`
}

// PerformanceMetrics summarises a backtest. Nil values are degenerate results
// (for example a return series with zero variance has no Sharpe ratio).
type PerformanceMetrics struct {
	SharpeRatio *float64 `json:"sharpe_ratio"`
	MaxDrawdown *float64 `json:"max_drawdown"`
	FinalReturn *float64 `json:"final_return"`
}

// BacktestReport bundles everything a single run produces for downstream collaborators.
type BacktestReport struct {
	RunId    string             `json:"run_id"`
	Symbol   string             `json:"symbol"`
	Strategy StrategyConfig     `json:"strategy"`
	Signals  []SignalPoint      `json:"signals"`
	Backtest []BacktestPoint    `json:"backtest"`
	Metrics  PerformanceMetrics `json:"metrics"`
	Ledger   TradeLedger        `json:"ledger"`
}

// LatestSignal returns the signal on the last emitted bar, or hold when there are none.
func (r *BacktestReport) LatestSignal() SignalType {
	if len(r.Signals) == 0 {
		return SignalHold
	}
	return r.Signals[len(r.Signals)-1].Signal
}

func Float64Ptr(v float64) *float64 {
	return &v
}

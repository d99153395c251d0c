package datamodels

import (
	"time"
)

type StrategyType string

const (
	StrategyTypeMovingAverageCrossover StrategyType = "ma_crossover"
)

// StrategyConfig holds the only tunables consumed by the signal generator.
// MinPeriods of zero selects the full-window warm-up rule.
type StrategyConfig struct {
	Type        StrategyType `mapstructure:"type" json:"type"`
	ShortWindow int          `mapstructure:"short_window" json:"short_window"`
	LongWindow  int          `mapstructure:"long_window" json:"long_window"`
	MinPeriods  int          `mapstructure:"min_periods" json:"min_periods,omitempty"`
}

type TradeType string

const (
	TradeTypeBuy  TradeType = "Buy"
	TradeTypeSell TradeType = "Sell"
)

// TradeRecord is one ledger line. ProfitLoss is nil for buys.
type TradeRecord struct {
	Timestamp  time.Time `json:"date"`
	Type       TradeType `json:"type"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	ProfitLoss *float64  `json:"profit_loss"`
}

type TradeLedger struct {
	Trades          []TradeRecord `json:"trades"`
	TotalProfitLoss float64       `json:"total_profit_loss"`
	OpenPositions   int           `json:"open_positions"`
}

const TradeLogTotalLabel = "Total"

var TradeLogHeader = []string{"Date", "Type", "Price", "Quantity", "Profit/Loss"}

// TradeLogRow is the tabular rendering of a ledger line; the summary row leaves
// Type, Price and Quantity empty.
type TradeLogRow struct {
	Date       string
	Type       string
	Price      string
	Quantity   string
	ProfitLoss string
}

func (r TradeLogRow) Values() []string {
	return []string{r.Date, r.Type, r.Price, r.Quantity, r.ProfitLoss}
}

// SellCount returns how many closing trades the ledger holds.
func (l *TradeLedger) SellCount() int {
	count := 0
	for _, t := range l.Trades {
		if t.Type == TradeTypeSell {
			count++
		}
	}
	return count
}

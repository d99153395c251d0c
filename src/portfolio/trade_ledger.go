package portfolio

import (
	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

// ledgerState is carried by value through the fold. A single cost basis is remembered:
// every buy overwrites it, so a sell is always priced against the most recent buy.
type ledgerState struct {
	OpenPositions int
	LastBuyPrice  *float64
	TotalProfit   float64
}

func (s ledgerState) isFlat() bool {
	return s.OpenPositions == 0
}

// step applies one signal to the state and returns the next state plus the trade it
// emits, if any.
func step(state ledgerState, point datamodels.SignalPoint) (ledgerState, *datamodels.TradeRecord) {
	switch point.Signal {
	case datamodels.SignalBuy:
		price := point.Close
		next := ledgerState{
			OpenPositions: state.OpenPositions + 1,
			LastBuyPrice:  &price,
			TotalProfit:   state.TotalProfit,
		}
		return next, &datamodels.TradeRecord{
			Timestamp: point.Timestamp,
			Type:      datamodels.TradeTypeBuy,
			Price:     point.Close,
			Quantity:  1,
		}
	case datamodels.SignalSell:
		if state.isFlat() {
			return state, nil
		}
		profit := point.Close - *state.LastBuyPrice
		next := ledgerState{
			OpenPositions: state.OpenPositions - 1,
			LastBuyPrice:  state.LastBuyPrice,
			TotalProfit:   state.TotalProfit + profit,
		}
		return next, &datamodels.TradeRecord{
			Timestamp:  point.Timestamp,
			Type:       datamodels.TradeTypeSell,
			Price:      point.Close,
			Quantity:   1,
			ProfitLoss: &profit,
		}
	default:
		return state, nil
	}
}

// BuildTradeLedger replays the signal series into a buy/sell log. Sells while flat are
// ignored and positions still open at the end are left open.
func BuildTradeLedger(signals []datamodels.SignalPoint) (datamodels.TradeLedger, error) {
	for i, p := range signals {
		if p.Timestamp.IsZero() {
			return datamodels.TradeLedger{}, errors.MissingField("timestamp")
		}
		if !p.Signal.IsValid() {
			return datamodels.TradeLedger{}, errors.InvalidParameter("signal", "must be -1, 0 or 1 at row %d, got %d", i, p.Signal)
		}
	}

	state := ledgerState{}
	trades := make([]datamodels.TradeRecord, 0)
	for _, p := range signals {
		var trade *datamodels.TradeRecord
		state, trade = step(state, p)
		if trade != nil {
			trades = append(trades, *trade)
		}
	}

	return datamodels.TradeLedger{
		Trades:          trades,
		TotalProfitLoss: state.TotalProfit,
		OpenPositions:   state.OpenPositions,
	}, nil
}

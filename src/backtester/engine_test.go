package backtester

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

var day0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

func makeSignals(closes []float64, signals []datamodels.SignalType) []datamodels.SignalPoint {
	out := make([]datamodels.SignalPoint, len(closes))
	for i := range closes {
		out[i] = datamodels.SignalPoint{
			Timestamp: day0.AddDate(0, 0, i),
			Close:     closes[i],
			Signal:    signals[i],
		}
	}
	return out
}

func TestRunLagsSignalByOneBar(t *testing.T) {
	signals := makeSignals(
		[]float64{100, 110, 99, 99, 120},
		[]datamodels.SignalType{
			datamodels.SignalBuy,
			datamodels.SignalHold,
			datamodels.SignalSell,
			datamodels.SignalHold,
			datamodels.SignalHold,
		})

	points, err := Run(signals)
	require.NoError(t, err)
	require.Len(t, points, len(signals))

	assert.Nil(t, points[0].MarketReturn)
	assert.Nil(t, points[0].StrategyReturn)
	assert.Equal(t, 1.0, points[0].CumulativeReturn)

	// bar 1 earns its +10% because bar 0 signalled a buy
	assert.InDelta(t, 0.1, *points[1].MarketReturn, 1e-12)
	assert.InDelta(t, 0.1, *points[1].StrategyReturn, 1e-12)
	assert.InDelta(t, 1.1, points[1].CumulativeReturn, 1e-12)

	// bar 2 signals sell on its own close but earns nothing from it
	assert.InDelta(t, -0.1, *points[2].MarketReturn, 1e-12)
	assert.InDelta(t, 0.0, *points[2].StrategyReturn, 1e-12)
	assert.InDelta(t, 1.1, points[2].CumulativeReturn, 1e-12)

	// bar 3 is flat, so the short from bar 2 earns zero
	assert.InDelta(t, 0.0, *points[3].StrategyReturn, 1e-12)

	// bar 4 rises 21.2% with a hold on bar 3
	assert.InDelta(t, 0.0, *points[4].StrategyReturn, 1e-12)
	assert.InDelta(t, 1.1, points[4].CumulativeReturn, 1e-12)
}

func TestRunIgnoresCurrentSignal(t *testing.T) {
	closes := []float64{50, 55, 52, 60, 58, 61}
	base := []datamodels.SignalType{
		datamodels.SignalHold,
		datamodels.SignalBuy,
		datamodels.SignalHold,
		datamodels.SignalSell,
		datamodels.SignalHold,
		datamodels.SignalBuy,
	}
	reference, err := Run(makeSignals(closes, base))
	require.NoError(t, err)

	for t0 := range closes {
		for _, replacement := range []datamodels.SignalType{datamodels.SignalSell, datamodels.SignalHold, datamodels.SignalBuy} {
			perturbed := append([]datamodels.SignalType{}, base...)
			perturbed[t0] = replacement
			points, err := Run(makeSignals(closes, perturbed))
			require.NoError(t, err)
			// changing signal[t0] may only affect bar t0+1
			if points[t0].StrategyReturn == nil {
				assert.Nil(t, reference[t0].StrategyReturn)
				continue
			}
			assert.Equal(t, *reference[t0].StrategyReturn, *points[t0].StrategyReturn, "bar %d", t0)
		}
	}
}

func TestRunConstantPrices(t *testing.T) {
	closes := []float64{20, 20, 20, 20}
	points, err := Run(makeSignals(closes, []datamodels.SignalType{
		datamodels.SignalHold, datamodels.SignalBuy, datamodels.SignalSell, datamodels.SignalHold,
	}))
	require.NoError(t, err)
	for i, p := range points {
		assert.Equal(t, 1.0, p.CumulativeReturn, "bar %d", i)
		if i > 0 {
			assert.Equal(t, 0.0, *p.MarketReturn)
			assert.Equal(t, 0.0, *p.StrategyReturn)
		}
	}
}

func TestRunZeroPreviousClose(t *testing.T) {
	points, err := Run(makeSignals([]float64{0, 10, 11}, []datamodels.SignalType{
		datamodels.SignalBuy, datamodels.SignalBuy, datamodels.SignalHold,
	}))
	require.NoError(t, err)
	assert.Nil(t, points[1].MarketReturn)
	assert.Nil(t, points[1].StrategyReturn)
	assert.Equal(t, 1.0, points[1].CumulativeReturn)
	assert.InDelta(t, 1.1, points[2].CumulativeReturn, 1e-12)
}

func TestRunEmptyAndInvalidInput(t *testing.T) {
	points, err := Run(nil)
	require.NoError(t, err)
	assert.Empty(t, points)

	signals := makeSignals([]float64{1, 2}, []datamodels.SignalType{datamodels.SignalHold, datamodels.SignalHold})
	signals[1].Timestamp = time.Time{}
	_, err = Run(signals)
	assert.ErrorIs(t, err, errors.ErrMissingField)

	signals = makeSignals([]float64{1, 2}, []datamodels.SignalType{datamodels.SignalType(3), datamodels.SignalHold})
	_, err = Run(signals)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
}

package strategies

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

func makeBars(closes ...float64) []datamodels.Bar {
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	bars := make([]datamodels.Bar, len(closes))
	for i, c := range closes {
		bars[i] = datamodels.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func randomWalk(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price *= 1 + (r.Float64()-0.5)*0.04
		closes[i] = price
	}
	return closes
}

func TestCrossoverScenario(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3})
	require.NoError(t, err)

	bars := makeBars(10, 11, 9, 9, 12, 15, 8)
	points, err := generator.Generate(bars)
	require.NoError(t, err)
	require.Len(t, points, 5)

	expectedShort := []float64{10, 9, 10.5, 13.5, 11.5}
	expectedLong := []float64{10, 29.0 / 3, 10, 12, 35.0 / 3}
	expectedSignals := []datamodels.SignalType{
		datamodels.SignalHold, // first emitted row, no previous bar
		datamodels.SignalSell, // 9 < 9.67 after 10 >= 10
		datamodels.SignalBuy,  // 10.5 > 10 after 9 <= 9.67
		datamodels.SignalHold, // still above
		datamodels.SignalSell, // 11.5 < 11.67 after 13.5 >= 12
	}
	for i, p := range points {
		assert.Equal(t, bars[i+2].Timestamp, p.Timestamp)
		assert.Equal(t, bars[i+2].Close, p.Close)
		assert.InDelta(t, expectedShort[i], p.ShortMa, 1e-9, "short_ma at %d", i)
		assert.InDelta(t, expectedLong[i], p.LongMa, 1e-9, "long_ma at %d", i)
		assert.Equal(t, expectedSignals[i], p.Signal, "signal at %d", i)
	}

	buys := 0
	for _, p := range points {
		if p.Signal == datamodels.SignalBuy {
			buys++
		}
	}
	assert.Equal(t, 1, buys)
}

func TestGenerateLengthAndSignalDomain(t *testing.T) {
	closes := randomWalk(42, 300)
	windows := []struct{ short, long int }{{1, 2}, {2, 3}, {5, 20}, {20, 50}, {10, 300}}

	for _, w := range windows {
		generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: w.short, LongWindow: w.long})
		require.NoError(t, err)

		points, err := generator.Generate(makeBars(closes...))
		require.NoError(t, err)
		assert.Len(t, points, len(closes)-(w.long-1))
		for i, p := range points {
			assert.True(t, p.Signal.IsValid(), "signal %d out of domain", p.Signal)
			if i == 0 {
				assert.Equal(t, datamodels.SignalHold, p.Signal)
			}
		}
	}
}

func TestGenerateFiresOncePerRegimeChange(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 4})
	require.NoError(t, err)

	// steady uptrend after a flat start: one buy, then nothing while the trend persists
	points, err := generator.Generate(makeBars(10, 10, 10, 10, 11, 12, 13, 14, 15, 16))
	require.NoError(t, err)

	var events []datamodels.SignalType
	for _, p := range points {
		if p.Signal != datamodels.SignalHold {
			events = append(events, p.Signal)
		}
	}
	assert.Equal(t, []datamodels.SignalType{datamodels.SignalBuy}, events)
}

func TestGenerateFlatTailEmitsNoSignal(t *testing.T) {
	closes := []float64{10.1, 13.7, 9.3, 11.9, 12.3, 8.7, 14.1, 10.3, 9.9, 13.3}
	for i := 0; i < 12; i++ {
		closes = append(closes, 11.1)
	}
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 5})
	require.NoError(t, err)

	points, err := generator.Generate(makeBars(closes...))
	require.NoError(t, err)
	require.Len(t, points, len(closes)-4)

	// from bar 14 on both windows cover only the flat tail
	for i := 14; i < len(closes); i++ {
		p := points[i-4]
		assert.Equal(t, p.ShortMa, p.LongMa, "bar %d", i)
		assert.Equal(t, datamodels.SignalHold, p.Signal, "bar %d", i)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 3, LongWindow: 8})
	require.NoError(t, err)

	bars := makeBars(randomWalk(7, 120)...)
	first, err := generator.Generate(bars)
	require.NoError(t, err)
	second, err := generator.Generate(bars)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// rebuilding the price history from the emitted rows plus the warm-up bars
	// reproduces the same signals
	rebuilt := append([]datamodels.Bar{}, bars[:7]...)
	for _, p := range first {
		rebuilt = append(rebuilt, datamodels.Bar{Timestamp: p.Timestamp, Close: p.Close})
	}
	third, err := generator.Generate(rebuilt)
	require.NoError(t, err)
	require.Len(t, third, len(first))
	for i := range first {
		assert.Equal(t, first[i].Signal, third[i].Signal)
	}
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3})
	require.NoError(t, err)

	bars := makeBars(10, 11, 9, 9, 12, 15, 8)
	snapshot := append([]datamodels.Bar{}, bars...)
	_, err = generator.Generate(bars)
	require.NoError(t, err)
	assert.Equal(t, snapshot, bars)
}

func TestGenerateShorterThanLongWindow(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 5})
	require.NoError(t, err)

	points, err := generator.Generate(makeBars(1, 2, 3))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestGenerateWithMinPeriods(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3, MinPeriods: 1})
	require.NoError(t, err)

	bars := makeBars(10, 11, 9, 9, 12, 15, 8)
	points, err := generator.Generate(bars)
	require.NoError(t, err)
	require.Len(t, points, len(bars))

	assert.Equal(t, datamodels.SignalHold, points[0].Signal)
	assert.InDelta(t, 10.0, points[0].ShortMa, 1e-9)
	assert.InDelta(t, 10.0, points[0].LongMa, 1e-9)
	// partial windows: short 10.5 over long 10.5 is not a crossing
	assert.InDelta(t, 10.5, points[1].ShortMa, 1e-9)
	assert.InDelta(t, 10.5, points[1].LongMa, 1e-9)
	assert.Equal(t, datamodels.SignalHold, points[1].Signal)
	// from the third bar on both windows are full and match the default rule
	assert.Equal(t, datamodels.SignalSell, points[3].Signal)
	assert.Equal(t, datamodels.SignalBuy, points[4].Signal)
}

func TestNewMovingAverageCrossoverValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   datamodels.StrategyConfig
		field string
	}{
		{"zero short window", datamodels.StrategyConfig{ShortWindow: 0, LongWindow: 3}, "short_window"},
		{"negative long window", datamodels.StrategyConfig{ShortWindow: 2, LongWindow: -1}, "long_window"},
		{"short equals long", datamodels.StrategyConfig{ShortWindow: 3, LongWindow: 3}, "short_window"},
		{"short above long", datamodels.StrategyConfig{ShortWindow: 5, LongWindow: 3}, "short_window"},
		{"min periods above short window", datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3, MinPeriods: 3}, "min_periods"},
		{"negative min periods", datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3, MinPeriods: -1}, "min_periods"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMovingAverageCrossover(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidParameter)
			field, ok := errors.FieldOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestGenerateValidatesBars(t *testing.T) {
	generator, err := NewMovingAverageCrossover(datamodels.StrategyConfig{ShortWindow: 1, LongWindow: 2})
	require.NoError(t, err)

	_, err = generator.Generate(nil)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)

	_, err = generator.Generate(makeBars(1, math.NaN(), 3))
	assert.ErrorIs(t, err, errors.ErrMissingField)

	_, err = generator.Generate(makeBars(1, -2, 3))
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)

	unordered := makeBars(1, 2, 3)
	unordered[2].Timestamp = unordered[1].Timestamp
	_, err = generator.Generate(unordered)
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
	field, _ := errors.FieldOf(err)
	assert.Equal(t, "timestamp", field)
}

func TestNewSignalGenerator(t *testing.T) {
	generator, err := NewSignalGenerator(datamodels.StrategyConfig{ShortWindow: 2, LongWindow: 3})
	require.NoError(t, err)
	assert.Equal(t, "ma_crossover", generator.GetName())

	_, err = NewSignalGenerator(datamodels.StrategyConfig{Type: "rsi", ShortWindow: 2, LongWindow: 3})
	assert.ErrorIs(t, err, errors.ErrInvalidParameter)
}

package aggregators

import (
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"crossbot/src/utils/errors"
)

// RollingSeries is aligned index for index with its input. Entries before Start are
// undefined and must not be read.
type RollingSeries struct {
	Values []float64
	Start  int
}

func (r RollingSeries) Defined(i int) bool {
	return i >= r.Start && i < len(r.Values)
}

// SeriesFunction computes a rolling statistic over a trailing window.
type SeriesFunction func(values []float64, window int) (RollingSeries, error)

// MeanFunc is the full-window simple moving average: the value at i is the mean of
// values[i-window+1 : i+1], defined only once a whole window has been observed. Every
// window is averaged on its own so a flat window always yields exactly its value.
func MeanFunc(values []float64, window int) (RollingSeries, error) {
	if window <= 0 {
		return RollingSeries{}, errors.InvalidParameter("window", "must be positive, got %d", window)
	}
	out := make([]float64, len(values))
	if len(values) < window {
		slog.Debug("Not enough values for a full window", "values", len(values), "window", window)
		return RollingSeries{Values: out, Start: len(values)}, nil
	}
	for i := window - 1; i < len(values); i++ {
		mean, err := windowMean(values[i-window+1 : i+1])
		if err != nil {
			return RollingSeries{}, errors.Wrapf(err, "failed to average window ending at %d", i)
		}
		out[i] = mean
	}
	return RollingSeries{Values: out, Start: window - 1}, nil
}

// windowMean averages deviations from the window's first value, so equal values give
// back that value with no rounding.
func windowMean(window []float64) (float64, error) {
	base := window[0]
	deviations := make([]float64, len(window))
	for i, v := range window {
		deviations[i] = v - base
	}
	mean, err := stats.Mean(deviations)
	if err != nil {
		return 0, err
	}
	return base + mean, nil
}

// CreateMinPeriodsMeanFunc returns a moving average that also averages partial windows
// holding at least minPeriods observations.
func CreateMinPeriodsMeanFunc(minPeriods int) SeriesFunction {
	return func(values []float64, window int) (RollingSeries, error) {
		if window <= 0 {
			return RollingSeries{}, errors.InvalidParameter("window", "must be positive, got %d", window)
		}
		if minPeriods <= 0 || minPeriods > window {
			return RollingSeries{}, errors.InvalidParameter("min_periods", "must be in [1, %d], got %d", window, minPeriods)
		}
		out := make([]float64, len(values))
		start := minPeriods - 1
		if start > len(values) {
			start = len(values)
		}
		for i := start; i < len(values); i++ {
			from := i - window + 1
			if from < 0 {
				from = 0
			}
			mean, err := windowMean(values[from : i+1])
			if err != nil {
				return RollingSeries{}, errors.Wrapf(err, "failed to average window ending at %d", i)
			}
			out[i] = mean
		}
		return RollingSeries{Values: out, Start: start}, nil
	}
}

// PctChangeFunc returns (values[i]-values[i-1])/values[i-1]. The first entry, and any
// entry whose previous value is zero, is nil.
func PctChangeFunc(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			slog.Warn("Previous value is zero, percent change undefined", "index", i)
			continue
		}
		change := (values[i] - prev) / prev
		out[i] = &change
	}
	return out
}

// CumulativeMaxFunc returns the running maximum of values.
func CumulativeMaxFunc(values []float64) []float64 {
	out := make([]float64, len(values))
	runningMax := math.Inf(-1)
	for i, v := range values {
		if v > runningMax {
			runningMax = v
		}
		out[i] = runningMax
	}
	return out
}

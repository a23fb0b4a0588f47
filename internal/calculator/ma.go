package calculator

import (
	"errors"
	"math"

	"github.com/guregu/null/v6"
)

// CalculateSMA computes the simple moving average of the last period values.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// CalculateStdDev computes the sample standard deviation (n-1 denominator) of the last period values.
func CalculateStdDev(values []float64, period int) (float64, error) {
	if period < 2 {
		return 0, errors.New("period must be at least 2")
	}
	mean, err := CalculateSMA(values, period)
	if err != nil {
		return 0, err
	}
	var ss float64
	for i := len(values) - period; i < len(values); i++ {
		d := values[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(period-1)), nil
}

// SMASeries returns the rolling SMA for every index. Values before index period-1 are undefined.
func SMASeries(values []float64, period int) []null.Float {
	out := make([]null.Float, len(values))
	for i := range values {
		if v, err := CalculateSMA(values[:i+1], period); err == nil {
			out[i] = null.FloatFrom(v)
		}
	}
	return out
}

// StdDevSeries returns the rolling sample standard deviation with the same gating as SMASeries.
func StdDevSeries(values []float64, period int) []null.Float {
	out := make([]null.Float, len(values))
	for i := range values {
		if v, err := CalculateStdDev(values[:i+1], period); err == nil {
			out[i] = null.FloatFrom(v)
		}
	}
	return out
}

// BollingerSeries returns middle, upper and lower bands: SMA(period) ± k·stddev(period).
// The three bands are defined on exactly the same indices.
func BollingerSeries(values []float64, period int, k float64) (middle, upper, lower []null.Float) {
	middle = SMASeries(values, period)
	sd := StdDevSeries(values, period)
	upper = make([]null.Float, len(values))
	lower = make([]null.Float, len(values))
	for i := range values {
		if !middle[i].Valid || !sd[i].Valid {
			middle[i] = null.Float{}
			continue
		}
		upper[i] = null.FloatFrom(middle[i].Float64 + k*sd[i].Float64)
		lower[i] = null.FloatFrom(middle[i].Float64 - k*sd[i].Float64)
	}
	return middle, upper, lower
}

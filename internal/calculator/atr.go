package calculator

import (
	"math"

	"github.com/guregu/null/v6"

	"SignalDesk/internal/model"
)

// TrueRangeSeries returns max(H-L, |H-prevC|, |L-prevC|). The first bar has no previous close and is undefined.
func TrueRangeSeries(bars []model.PriceBar) []null.Float {
	out := make([]null.Float, len(bars))
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
		out[i] = null.FloatFrom(tr)
	}
	return out
}

// ATRSeries is the simple average of the last period true ranges, defined for i >= period.
func ATRSeries(bars []model.PriceBar, period int) []null.Float {
	out := make([]null.Float, len(bars))
	if period <= 0 {
		return out
	}
	tr := TrueRangeSeries(bars)
	for i := period; i < len(bars); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j].Float64
		}
		out[i] = null.FloatFrom(sum / float64(period))
	}
	return out
}

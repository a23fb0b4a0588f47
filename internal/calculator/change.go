package calculator

import "github.com/guregu/null/v6"

// PctChangeSeries returns (v[i]-v[i-periods])/v[i-periods]*100, undefined for i < periods.
func PctChangeSeries(values []float64, periods int) []null.Float {
	out := make([]null.Float, len(values))
	if periods <= 0 {
		return out
	}
	for i := periods; i < len(values); i++ {
		base := values[i-periods]
		if base == 0 {
			continue
		}
		out[i] = null.FloatFrom((values[i] - base) / base * 100)
	}
	return out
}

package calculator

import "github.com/guregu/null/v6"

// EMA seeds with the first value and applies alpha = 2/(span+1) from there on.
// Unlike the SMA family it is defined from index 0.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// MACDSeries returns EMA(fast), EMA(slow), their difference and the EMA(signal) of that difference.
func MACDSeries(closes []float64, fast, slow, signal int) (emaFast, emaSlow, macd, signalLine []null.Float) {
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = ef[i] - es[i]
	}
	sl := EMA(diff, signal)
	return toNull(ef), toNull(es), toNull(diff), toNull(sl)
}

func toNull(values []float64) []null.Float {
	out := make([]null.Float, len(values))
	for i, v := range values {
		out[i] = null.FloatFrom(v)
	}
	return out
}

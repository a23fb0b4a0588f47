package calculator

import "github.com/guregu/null/v6"

// RSISeries computes RSI with simple (not Wilder) averages of the last period gains and losses.
// Index i is defined once period deltas exist, i.e. i >= period.
//
// avgLoss == 0 with avgGain > 0 saturates to 100. A window with neither gains nor losses
// has no direction and stays undefined.
func RSISeries(closes []float64, period int) []null.Float {
	out := make([]null.Float, len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < len(closes); i++ {
		var sumGain, sumLoss float64
		for j := i - period + 1; j <= i; j++ {
			sumGain += gains[j]
			sumLoss += losses[j]
		}
		avgGain := sumGain / float64(period)
		avgLoss := sumLoss / float64(period)
		if v, ok := rsiFromAverages(avgGain, avgLoss); ok {
			out[i] = null.FloatFrom(v)
		}
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) (float64, bool) {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100.0, true
		}
		return 0, false
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), true
}

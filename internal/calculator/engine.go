package calculator

import (
	"fmt"

	"SignalDesk/internal/model"
)

// Fixed indicator periods.
const (
	PeriodMAShort     = 50
	PeriodMALong      = 200
	PeriodRSI         = 14
	PeriodEMAFast     = 12
	PeriodEMASlow     = 26
	PeriodMACDSignal  = 9
	PeriodBollinger   = 20
	BollingerWidth    = 2.0
	PeriodATR         = 14
	PeriodMonthChange = 30
)

// Compute derives the full IndicatorSeries for a price series.
// The series must satisfy PriceSeries.Validate; anything else is a caller defect.
func Compute(series *model.PriceSeries) (model.IndicatorSeries, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}

	closes := series.Closes()
	n := len(closes)

	ma50 := SMASeries(closes, PeriodMAShort)
	ma200 := SMASeries(closes, PeriodMALong)
	rsi := RSISeries(closes, PeriodRSI)
	ema12, ema26, macd, signal := MACDSeries(closes, PeriodEMAFast, PeriodEMASlow, PeriodMACDSignal)
	middle, upper, lower := BollingerSeries(closes, PeriodBollinger, BollingerWidth)
	atr := ATRSeries(series.Bars, PeriodATR)
	change := PctChangeSeries(closes, PeriodMonthChange)

	out := make(model.IndicatorSeries, n)
	for i := 0; i < n; i++ {
		out[i] = model.IndicatorRecord{
			MA50:             ma50[i],
			MA200:            ma200[i],
			RSI14:            rsi[i],
			EMA12:            ema12[i],
			EMA26:            ema26[i],
			MACD:             macd[i],
			SignalLine:       signal[i],
			MiddleBand20:     middle[i],
			UpperBand20:      upper[i],
			LowerBand20:      lower[i],
			ATR14:            atr[i],
			MonthlyChangePct: change[i],
		}
	}
	return out, nil
}

package model

import "github.com/guregu/null/v6"

// IndicatorRecord holds the indicator values of one trading day.
// A field with Valid == false means there was not enough history to compute it.
type IndicatorRecord struct {
	MA50             null.Float
	MA200            null.Float
	RSI14            null.Float
	EMA12            null.Float
	EMA26            null.Float
	MACD             null.Float
	SignalLine       null.Float
	MiddleBand20     null.Float
	UpperBand20      null.Float
	LowerBand20      null.Float
	ATR14            null.Float
	MonthlyChangePct null.Float
}

// IndicatorSeries is index-aligned with the PriceSeries it was computed from.
type IndicatorSeries []IndicatorRecord

// Last returns the most recent record. ok is false for an empty series.
func (s IndicatorSeries) Last() (rec IndicatorRecord, ok bool) {
	if len(s) == 0 {
		return IndicatorRecord{}, false
	}
	return s[len(s)-1], true
}

package strategy

import (
	"github.com/guregu/null/v6"

	"SignalDesk/internal/model"
)

// RSI thresholds for the momentum rule.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// rule inspects the latest record and returns at most one statement.
type rule func(rec model.IndicatorRecord) (model.Signal, bool)

// Rules are evaluated in display order: trend, momentum, macd.
var rules = []rule{trendRule, momentumRule, macdRule}

// Evaluate maps the most recent indicator record to its signal statements.
// Only the current relative position of the lines is compared; no crossing is detected.
func Evaluate(rec model.IndicatorRecord) model.SignalSet {
	set := make(model.SignalSet, 0, len(rules))
	for _, r := range rules {
		if sig, ok := r(rec); ok {
			set = append(set, sig)
		}
	}
	return set
}

func trendRule(rec model.IndicatorRecord) (model.Signal, bool) {
	switch compare(rec.MA50, rec.MA200) {
	case above:
		return model.Signal{Kind: model.SignalTrend, Direction: model.DirectionBuy,
			Text: "MA50 crosses above MA200: Buy signal"}, true
	case below:
		return model.Signal{Kind: model.SignalTrend, Direction: model.DirectionSell,
			Text: "MA50 crosses below MA200: Sell signal"}, true
	}
	return model.Signal{}, false
}

func momentumRule(rec model.IndicatorRecord) (model.Signal, bool) {
	if !rec.RSI14.Valid {
		return model.Signal{}, false
	}
	switch rsi := rec.RSI14.Float64; {
	case rsi > RSIOverbought:
		return model.Signal{Kind: model.SignalMomentum, Direction: model.DirectionSell,
			Text: "RSI above 70: Overbought (Sell signal)"}, true
	case rsi < RSIOversold:
		return model.Signal{Kind: model.SignalMomentum, Direction: model.DirectionBuy,
			Text: "RSI below 30: Oversold (Buy signal)"}, true
	}
	return model.Signal{}, false
}

func macdRule(rec model.IndicatorRecord) (model.Signal, bool) {
	switch compare(rec.MACD, rec.SignalLine) {
	case above:
		return model.Signal{Kind: model.SignalMACD, Direction: model.DirectionBuy,
			Text: "MACD above Signal Line: Buy signal"}, true
	case below:
		return model.Signal{Kind: model.SignalMACD, Direction: model.DirectionSell,
			Text: "MACD below Signal Line: Sell signal"}, true
	}
	return model.Signal{}, false
}

type relation int

const (
	undetermined relation = iota
	above
	below
)

// compare is strict: equal values are undetermined, as is any undefined side.
func compare(a, b null.Float) relation {
	if !a.Valid || !b.Valid {
		return undetermined
	}
	switch {
	case a.Float64 > b.Float64:
		return above
	case a.Float64 < b.Float64:
		return below
	}
	return undetermined
}

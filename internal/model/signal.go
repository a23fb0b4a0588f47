package model

import "strings"

// SignalKind identifies which rule produced a statement.
type SignalKind string

const (
	SignalTrend    SignalKind = "trend"
	SignalMomentum SignalKind = "momentum"
	SignalMACD     SignalKind = "macd"
)

// Direction is the action suggested by a signal.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal is a single textual statement derived from the latest indicators.
type Signal struct {
	Kind      SignalKind
	Direction Direction
	Text      string
}

// SignalSet is ordered trend, momentum, macd. Display code relies on that order.
type SignalSet []Signal

// Text joins the statements with newlines.
func (s SignalSet) Text() string {
	lines := make([]string, len(s))
	for i, sig := range s {
		lines[i] = sig.Text
	}
	return strings.Join(lines, "\n")
}

// Find returns the statement of the given kind, if any.
func (s SignalSet) Find(kind SignalKind) (Signal, bool) {
	for _, sig := range s {
		if sig.Kind == kind {
			return sig, true
		}
	}
	return Signal{}, false
}

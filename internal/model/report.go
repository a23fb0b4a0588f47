package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// ReportRow is the per-symbol summary. It is built once and never modified.
type ReportRow struct {
	Symbol        string
	CurrentPrice  float64
	MA50          null.Float
	MA200         null.Float
	RSI14         null.Float
	MACD          null.Float
	SignalLine    null.Float
	UpperBand     null.Float
	LowerBand     null.Float
	ATR           null.Float
	MonthlyChange null.Float
	Signals       SignalSet
	SignalText    string
	AsOf          time.Time
}

// FailureKind classifies why a symbol was skipped.
type FailureKind string

const (
	FailureDataUnavailable   FailureKind = "data_unavailable"
	FailureArithmeticAnomaly FailureKind = "arithmetic_anomaly"
)

// SymbolFailure describes a skipped symbol.
type SymbolFailure struct {
	Symbol string
	Kind   FailureKind
	Err    error
}

// Report is the artifact of one batch run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []ReportRow
	Failures   []SymbolFailure
}

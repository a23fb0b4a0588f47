package recorder

import (
	"context"
	"time"

	"SignalDesk/internal/model"
)

// StatusOK marks a symbol that produced a report row.
const StatusOK = "ok"

// SymbolOutcome is the journal entry for one symbol of a run. Indicator values are never kept.
type SymbolOutcome struct {
	Symbol string
	Status string // "ok" or a model.FailureKind
	Error  string
	AsOf   time.Time
}

// Outcomes lists the per-symbol outcomes of rep, rows first.
func Outcomes(rep *model.Report) []SymbolOutcome {
	out := make([]SymbolOutcome, 0, len(rep.Rows)+len(rep.Failures))
	for _, row := range rep.Rows {
		out = append(out, SymbolOutcome{Symbol: row.Symbol, Status: StatusOK, AsOf: row.AsOf})
	}
	for _, f := range rep.Failures {
		o := SymbolOutcome{Symbol: f.Symbol, Status: string(f.Kind)}
		if f.Err != nil {
			o.Error = f.Err.Error()
		}
		out = append(out, o)
	}
	return out
}

// Recorder journals finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, run model.RunSummary, outcomes []SymbolOutcome) error
	// LastRun returns nil when nothing has been recorded.
	LastRun(ctx context.Context) (*model.RunSummary, error)
	// SymbolHistory returns the last n outcomes of symbol, newest first.
	SymbolHistory(ctx context.Context, symbol string, n int) ([]SymbolOutcome, error)
	Close() error
}

package recorder

import (
	"context"

	"SignalDesk/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, model.RunSummary, []SymbolOutcome) error {
	return nil
}

func (n *NoopRecorder) LastRun(context.Context) (*model.RunSummary, error) { return nil, nil }

func (n *NoopRecorder) SymbolHistory(context.Context, string, int) ([]SymbolOutcome, error) {
	return nil, nil
}

func (n *NoopRecorder) Close() error { return nil }

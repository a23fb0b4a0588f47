package report

import (
	"sync"
	"time"

	"SignalDesk/internal/model"
)

type slot struct {
	row     *model.ReportRow
	failure *model.SymbolFailure
}

// Builder collects the outcome of one run. Each symbol owns the slot at its input
// position, so concurrent pipelines can finish in any order.
type Builder struct {
	mu        sync.Mutex
	runID     string
	startedAt time.Time
	slots     []slot
}

// NewBuilder creates a builder for size symbols.
func NewBuilder(runID string, size int, startedAt time.Time) *Builder {
	return &Builder{runID: runID, startedAt: startedAt, slots: make([]slot, size)}
}

// Add stores the row for the symbol at index i.
func (b *Builder) Add(i int, row model.ReportRow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = slot{row: &row}
}

// Fail records that the symbol at index i was skipped.
func (b *Builder) Fail(i int, f model.SymbolFailure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[i] = slot{failure: &f}
}

// Build returns the report with rows and failures in input order.
func (b *Builder) Build(finishedAt time.Time) *model.Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	rep := &model.Report{
		RunID:      b.runID,
		StartedAt:  b.startedAt,
		FinishedAt: finishedAt,
		Rows:       make([]model.ReportRow, 0, len(b.slots)),
	}
	for _, s := range b.slots {
		switch {
		case s.row != nil:
			rep.Rows = append(rep.Rows, *s.row)
		case s.failure != nil:
			rep.Failures = append(rep.Failures, *s.failure)
		}
	}
	return rep
}

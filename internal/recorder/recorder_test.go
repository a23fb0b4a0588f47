package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalDesk/internal/model"
)

var t0 = time.Date(2025, 9, 30, 22, 30, 0, 0, time.UTC)

func report(runID string, started time.Time) *model.Report {
	return &model.Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Rows: []model.ReportRow{
			{Symbol: "AMD", AsOf: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
			{Symbol: "NVDA", AsOf: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)},
		},
		Failures: []model.SymbolFailure{
			{Symbol: "SMCI", Kind: model.FailureDataUnavailable, Err: errors.New("no price data")},
		},
	}
}

func TestOutcomes(t *testing.T) {
	out := Outcomes(report("r", t0))
	require.Len(t, out, 3)
	assert.Equal(t, SymbolOutcome{Symbol: "AMD", Status: StatusOK, AsOf: time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)}, out[0])
	assert.Equal(t, "SMCI", out[2].Symbol)
	assert.Equal(t, "data_unavailable", out[2].Status)
	assert.Equal(t, "no price data", out[2].Error)
	assert.True(t, out[2].AsOf.IsZero())
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "journal.db"))
	require.NoError(t, err)
	defer r.Close()

	last, err := r.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	first := report("run-1", t0)
	require.NoError(t, r.RecordRun(ctx, first.Summarize(nil), Outcomes(first)))

	second := report("run-2", t0.Add(24*time.Hour))
	second.Rows = second.Rows[:1]
	second.Failures = append(second.Failures, model.SymbolFailure{Symbol: "NVDA", Kind: model.FailureArithmeticAnomaly})
	require.NoError(t, r.RecordRun(ctx, second.Summarize([]string{"email: dial failed", "telegram: 502"}), Outcomes(second)))

	last, err = r.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.RunID)
	assert.Equal(t, 3, last.Symbols)
	assert.Equal(t, 1, last.Rows)
	assert.Equal(t, 2, last.Failed)
	assert.Equal(t, []string{"email: dial failed", "telegram: 502"}, last.DeliveryErrors)
	assert.True(t, last.StartedAt.Equal(t0.Add(24*time.Hour)))
	assert.Equal(t, 1500*time.Millisecond, last.FinishedAt.Sub(last.StartedAt))

	hist, err := r.SymbolHistory(ctx, "NVDA", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, string(model.FailureArithmeticAnomaly), hist[0].Status)
	assert.Equal(t, StatusOK, hist[1].Status)
	assert.Equal(t, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), hist[1].AsOf)

	hist, err = r.SymbolHistory(ctx, "NVDA", 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestSQLiteRecorder_DuplicateRunIDRollsBack(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer r.Close()

	rep := report("same", t0)
	require.NoError(t, r.RecordRun(ctx, rep.Summarize(nil), Outcomes(rep)))
	assert.Error(t, r.RecordRun(ctx, rep.Summarize(nil), Outcomes(rep)))

	hist, err := r.SymbolHistory(ctx, "AMD", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	require.NoError(t, r.RecordRun(context.Background(), model.RunSummary{}, nil))
	last, err := r.LastRun(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, last)
	assert.NoError(t, r.Close())
}

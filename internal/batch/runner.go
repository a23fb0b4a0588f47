package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SignalDesk/internal/calculator"
	"SignalDesk/internal/metrics"
	"SignalDesk/internal/model"
	"SignalDesk/internal/report"
	"SignalDesk/internal/strategy"
)

// ErrArithmeticAnomaly marks a symbol whose computation panicked or produced non-finite values.
var ErrArithmeticAnomaly = errors.New("arithmetic anomaly")

// Collector supplies validated price history. Errors skip the symbol.
type Collector interface {
	Collect(ctx context.Context, symbol string) (*model.PriceSeries, error)
}

// Runner processes a list of symbols into a report.
type Runner struct {
	Collector Collector
	Workers   int
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// NewRunner creates a Runner. workers <= 1 processes symbols strictly one after another.
func NewRunner(col Collector, workers int, m *metrics.Metrics) *Runner {
	return &Runner{Collector: col, Workers: workers, Metrics: m, Now: time.Now}
}

// Run fetches, computes and assembles one row per symbol. Failed symbols are logged and
// listed in Report.Failures; rows keep the input order. A non-nil error means the run
// itself was aborted (cancelled context or a malformed series reaching the engine).
func (r *Runner) Run(ctx context.Context, symbols []string) (*model.Report, error) {
	symbols = dedupe(symbols)
	started := r.Now()
	runID := uuid.NewString()
	b := report.NewBuilder(runID, len(symbols), started)

	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Int("symbols", len(symbols)).Int("workers", r.workers()).Msg("batch run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, symbol := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, failure, err := r.processSymbol(gctx, symbol)
			switch {
			case err != nil:
				logger.Error().Str("symbol", symbol).Err(err).Msg("batch aborted")
				return err
			case failure != nil:
				logger.Error().Str("symbol", symbol).Str("kind", string(failure.Kind)).Err(failure.Err).Msg("error processing symbol, skipped")
				r.Metrics.ObserveSymbol(string(failure.Kind))
				b.Fail(i, *failure)
			default:
				r.Metrics.ObserveSymbol(metrics.OutcomeOK)
				b.Add(i, row)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	finished := r.Now()
	rep := b.Build(finished)
	r.Metrics.ObserveRun(finished.Sub(started), len(rep.Rows), finished)
	logger.Info().Int("rows", len(rep.Rows)).Int("failed", len(rep.Failures)).
		Dur("elapsed", finished.Sub(started)).Msg("batch run finished")
	return rep, nil
}

func (r *Runner) workers() int {
	if r.Workers < 1 {
		return 1
	}
	return r.Workers
}

// processSymbol returns either a row, a recoverable failure, or a fatal error.
func (r *Runner) processSymbol(ctx context.Context, symbol string) (model.ReportRow, *model.SymbolFailure, error) {
	series, err := r.Collector.Collect(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return model.ReportRow{}, nil, ctx.Err()
		}
		return model.ReportRow{}, &model.SymbolFailure{Symbol: symbol, Kind: model.FailureDataUnavailable, Err: err}, nil
	}

	start := time.Now()
	row, err := analyze(series)
	r.Metrics.ObserveCompute(time.Since(start))

	switch {
	case err == nil:
		return row, nil, nil
	case errors.Is(err, ErrArithmeticAnomaly):
		return model.ReportRow{}, &model.SymbolFailure{Symbol: symbol, Kind: model.FailureArithmeticAnomaly, Err: err}, nil
	case errors.Is(err, report.ErrNoBars):
		return model.ReportRow{}, &model.SymbolFailure{Symbol: symbol, Kind: model.FailureDataUnavailable, Err: err}, nil
	default:
		return model.ReportRow{}, nil, err
	}
}

// analyze runs the pure part of the pipeline on one series.
func analyze(series *model.PriceSeries) (row model.ReportRow, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrArithmeticAnomaly, series.Symbol, p)
		}
	}()

	ind, err := calculator.Compute(series)
	if err != nil {
		return model.ReportRow{}, err
	}
	last, ok := ind.Last()
	if !ok {
		return model.ReportRow{}, fmt.Errorf("%s: %w", series.Symbol, report.ErrNoBars)
	}
	if field, ok := nonFinite(last); ok {
		return model.ReportRow{}, fmt.Errorf("%w: %s: %s is not finite", ErrArithmeticAnomaly, series.Symbol, field)
	}
	return report.BuildRow(series, ind, strategy.Evaluate(last))
}

// nonFinite returns the name of the first defined field holding NaN or Inf.
func nonFinite(rec model.IndicatorRecord) (string, bool) {
	fields := []struct {
		name  string
		value null.Float
	}{
		{"MA50", rec.MA50}, {"MA200", rec.MA200}, {"RSI14", rec.RSI14},
		{"EMA12", rec.EMA12}, {"EMA26", rec.EMA26}, {"MACD", rec.MACD}, {"SignalLine", rec.SignalLine},
		{"MiddleBand20", rec.MiddleBand20}, {"UpperBand20", rec.UpperBand20}, {"LowerBand20", rec.LowerBand20},
		{"ATR14", rec.ATR14}, {"MonthlyChangePct", rec.MonthlyChangePct},
	}
	for _, f := range fields {
		if f.value.Valid && (math.IsNaN(f.value.Float64) || math.IsInf(f.value.Float64, 0)) {
			return f.name, true
		}
	}
	return "", false
}

// dedupe keeps the first occurrence of every symbol.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

package report

import (
	"errors"
	"fmt"

	"SignalDesk/internal/model"
)

// ErrNoBars is returned when a row is requested for an empty series.
var ErrNoBars = errors.New("no bars to report")

// BuildRow assembles the summary row from the latest bar, indicator record and signals.
func BuildRow(series *model.PriceSeries, ind model.IndicatorSeries, signals model.SignalSet) (model.ReportRow, error) {
	bar, ok := series.Last()
	if !ok {
		return model.ReportRow{}, fmt.Errorf("%s: %w", series.Symbol, ErrNoBars)
	}
	if len(ind) != series.Len() {
		return model.ReportRow{}, fmt.Errorf("%s: indicator series has %d records for %d bars", series.Symbol, len(ind), series.Len())
	}
	rec := ind[len(ind)-1]

	sigs := make(model.SignalSet, len(signals))
	copy(sigs, signals)

	return model.ReportRow{
		Symbol:        series.Symbol,
		CurrentPrice:  bar.Close,
		MA50:          rec.MA50,
		MA200:         rec.MA200,
		RSI14:         rec.RSI14,
		MACD:          rec.MACD,
		SignalLine:    rec.SignalLine,
		UpperBand:     rec.UpperBand20,
		LowerBand:     rec.LowerBand20,
		ATR:           rec.ATR14,
		MonthlyChange: rec.MonthlyChangePct,
		Signals:       sigs,
		SignalText:    sigs.Text(),
		AsOf:          bar.Date,
	}, nil
}

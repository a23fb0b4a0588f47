package report

import (
	"math"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"SignalDesk/internal/model"
)

// Columns is the fixed export schema. Downstream spreadsheets and mails depend on this order.
var Columns = []string{
	"Symbol",
	"Current Price",
	"MA50",
	"MA200",
	"RSI(14)",
	"MACD",
	"Signal Line",
	"Upper Band",
	"Lower Band",
	"ATR",
	"Monthly Change (%)",
	"Signal",
}

// Undefined is the text rendering of a value that could not be computed.
const Undefined = "NaN"

// Cell is one value of a row in column order. Exactly one of Text or Number is meaningful.
type Cell struct {
	Text    string
	Number  null.Float
	Numeric bool
}

// Cells lays the row out in Columns order.
func Cells(row model.ReportRow) []Cell {
	num := func(v null.Float) Cell { return Cell{Number: v, Numeric: true} }
	return []Cell{
		{Text: row.Symbol},
		num(null.FloatFrom(row.CurrentPrice)),
		num(row.MA50),
		num(row.MA200),
		num(row.RSI14),
		num(row.MACD),
		num(row.SignalLine),
		num(row.UpperBand),
		num(row.LowerBand),
		num(row.ATR),
		num(row.MonthlyChange),
		{Text: row.SignalText},
	}
}

// Round rounds half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatNumber renders v with fixed decimals, or Undefined.
func FormatNumber(v null.Float, places int32) string {
	if !v.Valid || !finite(v.Float64) {
		return Undefined
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(places)
}

// String renders the cell for text outputs.
func (c Cell) String(places int32) string {
	if c.Numeric {
		return FormatNumber(c.Number, places)
	}
	return c.Text
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

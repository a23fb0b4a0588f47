package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"SignalDesk/internal/model"
	"SignalDesk/internal/report"
)

func sampleReport() *model.Report {
	return &model.Report{
		RunID: "run-x",
		Rows: []model.ReportRow{
			{
				Symbol:        "AMD",
				CurrentPrice:  156.123456,
				MA50:          null.FloatFrom(150.5),
				MA200:         null.FloatFrom(140.25),
				RSI14:         null.FloatFrom(71.33333),
				MACD:          null.FloatFrom(1.2),
				SignalLine:    null.FloatFrom(0.9),
				UpperBand:     null.FloatFrom(160),
				LowerBand:     null.FloatFrom(145),
				ATR:           null.FloatFrom(3.5),
				MonthlyChange: null.FloatFrom(8.25),
				SignalText:    "MA50 crosses above MA200: Buy signal\nRSI above 70: Overbought (Sell signal)",
			},
			{
				Symbol:       "AISP",
				CurrentPrice: 4.2,
				RSI14:        null.FloatFrom(45),
			},
		},
	}
}

func TestXLSXSink_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "stock.xlsx")
	sink := NewXLSXSink(path)
	require.NoError(t, sink.Export(context.Background(), sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Columns, rows[0])

	assert.Equal(t, "AMD", rows[1][0])
	assert.Equal(t, "156.1235", rows[1][1])
	assert.Equal(t, "71.3333", rows[1][4])
	assert.Equal(t, "MA50 crosses above MA200: Buy signal\nRSI above 70: Overbought (Sell signal)", rows[1][11])

	assert.Equal(t, "AISP", rows[2][0])
	assert.Equal(t, "", rows[2][2], "undefined MA50 is an empty cell")
	assert.Equal(t, "45", rows[2][4])
}

func TestXLSXSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewXLSXSink(filepath.Join(t.TempDir(), "x.xlsx")).Export(ctx, sampleReport())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkbook_EmptyReport(t *testing.T) {
	f, err := Workbook(&model.Report{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Symbol", rows[0][0])
}

package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"SignalDesk/internal/model"
	"SignalDesk/internal/report"
)

// SheetName is the worksheet holding the report table.
const SheetName = "Report"

// Sink receives the finished report table.
type Sink interface {
	Export(ctx context.Context, rep *model.Report) error
	Name() string
}

// XLSXSink writes the report to a workbook on disk.
type XLSXSink struct {
	Path string
}

// NewXLSXSink creates a sink writing to path.
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{Path: path}
}

func (s *XLSXSink) Name() string { return "xlsx" }

// Export writes one header row followed by one row per report row. Undefined numbers stay empty.
func (s *XLSXSink) Export(ctx context.Context, rep *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := Workbook(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	log.Info().Str("path", s.Path).Int("rows", len(rep.Rows)).Msg("report exported")
	return nil
}

// Workbook builds the in-memory workbook for rep.
func Workbook(rep *model.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(report.Columns))
	for i, c := range report.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r, row := range rep.Rows {
		cells := report.Cells(row)
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			switch {
			case !c.Numeric:
				values[i] = c.Text
			case c.Number.Valid:
				values[i] = report.Round(c.Number.Float64, 4)
			default:
				values[i] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %s: %w", row.Symbol, err)
		}
	}

	if err := styleSheet(f, len(rep.Rows)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func styleSheet(f *excelize.File, rows int) error {
	last, err := excelize.ColumnNumberToName(len(report.Columns))
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", last, 14); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, last, last, 42); err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("signal style: %w", err)
	}
	return f.SetCellStyle(SheetName, last+"2", fmt.Sprintf("%s%d", last, rows+1), wrap)
}

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jonny/mediq/internal/domain/model"
)

const (
	historySheet = "History"
	statsSheet   = "System Stats"
)

var historyHeaders = []string{
	"Report ID",
	"Session ID",
	"Timestamp (UTC)",
	"Filename",
	"File Type",
	"Health Score",
	"Overall Risk",
	"Processing Time (s)",
	"Analysis ID",
}

// HistoryXLSX renders the history window and counters as an XLSX workbook.
// Entries are written in the order given.
func HistoryXLSX(entries []model.HistoryEntry, trend model.Trend, stats model.SystemMetrics) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), historySheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range historyHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(historySheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(historyHeaders), 1)
		_ = f.SetCellStyle(historySheet, "A1", last, style)
	}

	for i, e := range entries {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(historySheet, cell, v)
		}
		write(1, e.ReportID)
		write(2, e.SessionID)
		write(3, e.Timestamp.UTC().Format(time.RFC3339))
		write(4, e.Filename)
		write(5, e.FileType)
		write(6, e.HealthScore)
		write(7, string(e.OverallRisk))
		write(8, e.ProcessingTime)
		write(9, e.AnalysisID)
	}
	_ = f.SetColWidth(historySheet, "A", "I", 20)

	if _, err := f.NewSheet(statsSheet); err != nil {
		return nil, fmt.Errorf("creating stats sheet: %w", err)
	}
	rows := [][2]any{
		{"Trend", string(trend)},
		{"Total files processed", stats.TotalFilesProcessed},
		{"Successful scans", stats.SuccessfulScans},
		{"Failed scans", stats.FailedScans},
		{"OCR extractions", stats.OCRExtractions},
	}
	for i, kv := range rows {
		_ = f.SetCellValue(statsSheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(statsSheet, fmt.Sprintf("B%d", i+1), kv[1])
	}

	idx, _ := f.GetSheetIndex(historySheet)
	f.SetActiveSheet(idx)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// rowsToSentences renders each data row as "col is val, col is val" using the
// first row as the header.
func rowsToSentences(rows [][]string) string {
	if len(rows) < 2 {
		return ""
	}
	header := rows[0]
	lines := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		parts := make([]string, 0, len(header))
		for i, col := range header {
			val := ""
			if i < len(row) {
				val = strings.TrimSpace(row[i])
			}
			parts = append(parts, fmt.Sprintf("%s is %s", strings.TrimSpace(col), val))
		}
		lines = append(lines, strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rowsToSentences(rows), nil
}

// extractXLSX renders the first sheet of the workbook.
func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rowsToSentences(rows), nil
}

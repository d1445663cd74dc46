// Package xlsx adds an Excel workbook writer to the export registry.
//
// It lives in its own package so a build can omit spreadsheet support by not
// importing it; the CLI blank-imports it to enable the format.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"webextract/internal/export"
	"webextract/internal/scrape"
)

const sheetName = "Records"

func init() {
	export.Register("xlsx", write)
}

// write emits a single-sheet workbook: a header row with the column union,
// then one row per record. Multi-value fields are joined the same way the
// CSV writer joins them.
func write(w io.Writer, records scrape.ResultSet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	columns := records.Columns()

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = cellValue(rec, col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d cell name: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(rec *scrape.Record, column string) string {
	v, ok := rec.Get(column)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	default:
		return fmt.Sprint(val)
	}
}

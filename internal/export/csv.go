package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"webextract/internal/scrape"
)

// listSeparator joins multi-value fields (links, images) into one CSV cell.
const listSeparator = "; "

func init() {
	Register("csv", writeCSV)
}

// writeCSV emits one header row (the union of record fields in first-seen
// order) followed by one row per record. Output is UTF-8 with a BOM so
// spreadsheet applications detect the encoding.
func writeCSV(w io.Writer, records scrape.ResultSet) error {
	// The UTF8BOM encoder prepends the byte order mark on first write.
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bw)
	columns := records.Columns()

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			row[j] = cellValue(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Close()
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
		return strings.Join(val, listSeparator)
	default:
		return fmt.Sprint(val)
	}
}

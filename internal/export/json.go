package export

import (
	"encoding/json"
	"io"

	"webextract/internal/scrape"
)

func init() {
	Register("json", writeJSON)
}

// writeJSON emits an indented JSON array, one object per record. HTML
// escaping is off and non-ASCII text passes through verbatim, so extracted
// content stays readable in the output file.
func writeJSON(w io.Writer, records scrape.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

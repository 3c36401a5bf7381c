package exporter

import (
	"fmt"
	"io"
	"strings"

	"dailyindex/internal/indexdata"
)

// Format is an export document format.
type Format string

// Supported formats
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format. The empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the media type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the attachment name for the format.
func (f Format) Filename() string {
	return "indices." + string(f)
}

// Write renders t in format f.
func Write(w io.Writer, t *indexdata.Table, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatCSV:
		return WriteCSV(w, t, WriteOptions{BOMPrefix: true})
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// rows returns the header followed by one row per date, newest first.
// Cells for indices a record lacks are empty.
func rows(t *indexdata.Table) [][]string {
	indices := t.Indices()
	out := make([][]string, 0, t.Len()+1)
	out = append(out, append([]string{"Date"}, indices...))

	for _, e := range t.Entries() {
		row := make([]string, 0, len(indices)+1)
		row = append(row, e.Date)
		for _, name := range indices {
			row = append(row, e.Record[name])
		}
		out = append(out, row)
	}
	return out
}

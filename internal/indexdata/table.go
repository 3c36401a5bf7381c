package indexdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Record maps index names to their value for a single date.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return Record{}
	}
	return maps.Clone(r)
}

// Entry is one date of the table.
type Entry struct {
	Date   string `json:"date"`
	Record Record `json:"record"`
}

// Table is an immutable, date-keyed set of records sorted descending by
// date. The zero value is not usable; use New, Load or FromRecords.
type Table struct {
	indices []string
	entries []Entry
	byDate  map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{byDate: map[string]int{}}
}

// Load parses a seed CSV into a fresh table.
func Load(r io.Reader) (*Table, error) {
	sheet, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}
	return New().Merge(sheet), nil
}

// FromRecords builds a table from already keyed records. Index names found
// in records but missing from indices are appended in sorted order.
func FromRecords(indices []string, records map[string]Record) *Table {
	known := slices.Clone(indices)
	var extra []string
	for _, rec := range records {
		for name := range rec {
			if !slices.Contains(known, name) && !slices.Contains(extra, name) {
				extra = append(extra, name)
			}
		}
	}
	slices.Sort(extra)

	t := &Table{indices: append(known, extra...)}
	t.entries = make([]Entry, 0, len(records))
	for date, rec := range records {
		t.entries = append(t.entries, Entry{Date: date, Record: rec.Clone()})
	}
	t.sort()
	return t
}

// Merge returns a new table holding the receiver's entries overlaid with
// the sheet's rows. A row replaces the whole record for its date. Index
// names not yet known are appended in header order. The receiver is not
// modified.
func (t *Table) Merge(s *Sheet) *Table {
	next := &Table{indices: slices.Clone(t.Indices())}
	for _, name := range s.Header.Indices {
		if !slices.Contains(next.indices, name) {
			next.indices = append(next.indices, name)
		}
	}

	records := make(map[string]Record, t.Len()+len(s.Rows))
	if t != nil {
		for _, e := range t.entries {
			records[e.Date] = e.Record
		}
	}
	for _, row := range s.Rows {
		records[row.Date] = row.Record.Clone()
	}

	next.entries = make([]Entry, 0, len(records))
	for date, rec := range records {
		next.entries = append(next.entries, Entry{Date: date, Record: rec})
	}
	next.sort()
	return next
}

func (t *Table) sort() {
	slices.SortFunc(t.entries, func(a, b Entry) int {
		return strings.Compare(b.Date, a.Date)
	})
	t.byDate = make(map[string]int, len(t.entries))
	for i, e := range t.entries {
		t.byDate[e.Date] = i
	}
}

// Len returns the number of dates in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Indices returns the known index names in order of first appearance.
func (t *Table) Indices() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.indices)
}

// Dates returns the date keys in table order.
func (t *Table) Dates() []string {
	dates := make([]string, 0, t.Len())
	if t == nil {
		return dates
	}
	for _, e := range t.entries {
		dates = append(dates, e.Date)
	}
	return dates
}

// Entries returns a copy of the table's entries in table order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, t.Len())
	if t == nil {
		return entries
	}
	for _, e := range t.entries {
		entries = append(entries, Entry{Date: e.Date, Record: e.Record.Clone()})
	}
	return entries
}

// Has reports whether the table holds date.
func (t *Table) Has(date string) bool {
	if t == nil {
		return false
	}
	_, ok := t.byDate[date]
	return ok
}

// Get returns a copy of the record for date.
func (t *Table) Get(date string) (Record, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: date %s", ErrNotFound, date)
	}
	i, ok := t.byDate[date]
	if !ok {
		return nil, fmt.Errorf("%w: date %s", ErrNotFound, date)
	}
	return t.entries[i].Record.Clone(), nil
}

// Value returns a single index value for date.
func (t *Table) Value(date, index string) (string, error) {
	rec, err := t.Get(date)
	if err != nil {
		return "", err
	}
	v, ok := rec[index]
	if !ok {
		return "", fmt.Errorf("%w: index %s on %s", ErrNotFound, index, date)
	}
	return v, nil
}

// MarshalJSON writes the table as a JSON object keyed by date, in table
// order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if t != nil {
		for i, e := range t.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Date)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(e.Record)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

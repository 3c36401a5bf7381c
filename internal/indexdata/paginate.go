package indexdata

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// PageSize is the number of entries on a full page.
	PageSize = 30

	// AllIndices selects the full record instead of a single index.
	AllIndices = "ALL"
)

// PageEntry is a (date, value) pair. Value holds a string for a single
// index or a Record for AllIndices.
type PageEntry struct {
	Date  string
	Value any
}

// MarshalJSON encodes the entry as a two element array.
func (e PageEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Date, e.Value})
}

// Page is a numbered slice of the table. Numbers start at 1.
type Page struct {
	Number  int
	Entries []PageEntry
}

// MarshalJSON encodes the page as {"<number>": [[date, value], ...]}.
func (p Page) MarshalJSON() ([]byte, error) {
	entries := p.Entries
	if entries == nil {
		entries = []PageEntry{}
	}
	return json.Marshal(map[string][]PageEntry{strconv.Itoa(p.Number): entries})
}

// PageCount returns the number of pages needed for n entries.
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// Paginate cuts the table into pages in table order. For AllIndices every
// entry carries the full record, otherwise the value of index. A date whose
// record lacks index fails the whole call with ErrNotFound. The table is
// only read.
func Paginate(t *Table, index string) ([]Page, error) {
	n := t.Len()
	pages := make([]Page, 0, PageCount(n))

	for start := 0; start < n; start += PageSize {
		end := min(start+PageSize, n)
		page := Page{
			Number:  start/PageSize + 1,
			Entries: make([]PageEntry, 0, end-start),
		}
		for _, e := range t.entries[start:end] {
			if index == AllIndices {
				page.Entries = append(page.Entries, PageEntry{Date: e.Date, Value: e.Record.Clone()})
				continue
			}
			v, ok := e.Record[index]
			if !ok {
				return nil, fmt.Errorf("%w: index %s on %s", ErrNotFound, index, e.Date)
			}
			page.Entries = append(page.Entries, PageEntry{Date: e.Date, Value: v})
		}
		pages = append(pages, page)
	}

	return pages, nil
}

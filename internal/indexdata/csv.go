package indexdata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DateLayout is the canonical layout of a date key.
const DateLayout = "20060102"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header is the parsed header row of an index CSV. The first cell labels
// the date column; every following cell names an index.
type Header struct {
	DateColumn string
	Indices    []string

	// columns[i] is the CSV column holding Indices[i]
	columns []int
	width   int
}

// Row is one data row zipped against its header.
type Row struct {
	Date   string
	Record Record
}

// Sheet is a parsed CSV document: one header and its data rows in file
// order.
type Sheet struct {
	Header Header
	Rows   []Row
}

// ParseCSV reads an index CSV. A UTF-8 byte-order mark is skipped. Every
// returned error wraps ErrMalformedInput.
func ParseCSV(r io.Reader) (*Sheet, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	cells, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedInput, err)
	}

	header, err := parseHeader(cells)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Header: header}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
		line, _ := reader.FieldPos(0)

		row, err := header.zip(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

func parseHeader(cells []string) (Header, error) {
	if len(cells) < 2 {
		return Header{}, fmt.Errorf("%w: header needs a date column and at least one index", ErrMalformedInput)
	}

	h := Header{
		DateColumn: strings.TrimSpace(cells[0]),
		width:      len(cells),
	}
	seen := make(map[string]bool, len(cells)-1)
	for col := 1; col < len(cells); col++ {
		name := strings.TrimSpace(cells[col])
		if name == "" {
			return Header{}, fmt.Errorf("%w: header column %d is empty", ErrMalformedInput, col+1)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		h.Indices = append(h.Indices, name)
		h.columns = append(h.columns, col)
	}
	return h, nil
}

// zip pairs the row's cells with the header names. Cells beyond the header
// width are ignored.
func (h Header) zip(fields []string) (Row, error) {
	if len(fields) < h.width {
		return Row{}, fmt.Errorf("%w: %d fields, header has %d", ErrMalformedInput, len(fields), h.width)
	}

	date := strings.TrimSpace(fields[0])
	if !IsDateKey(date) {
		return Row{}, fmt.Errorf("%w: %q is not a YYYYMMDD date", ErrMalformedInput, date)
	}

	record := make(Record, len(h.Indices))
	for i, name := range h.Indices {
		record[name] = strings.TrimSpace(fields[h.columns[i]])
	}
	return Row{Date: date, Record: record}, nil
}

// IsDateKey reports whether s is a canonical YYYYMMDD calendar date.
func IsDateKey(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

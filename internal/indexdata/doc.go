// Package indexdata holds the in-memory table of daily index values and the
// two operations that matter on it: merging CSV uploads and cutting the
// table into fixed-size pages.
//
// # Table
//
// A Table maps a canonical date key (YYYYMMDD) to a Record of index name to
// value. Values stay strings; nothing here parses them as numbers. Tables
// are immutable once built: Merge returns a new Table and leaves the
// receiver alone, which lets callers publish a table behind a lock and read
// it without further synchronization.
//
// Entries are kept sorted descending by date key. Because date keys are
// canonical, plain string comparison gives date order.
//
// # CSV
//
// ParseCSV turns CSV bytes into a Sheet: an explicit Header (ordered index
// names) and the data rows zipped against it. Rows shorter than the header
// are rejected; extra trailing cells are ignored. Row dates must be calendar
// dates in YYYYMMDD form, since table order relies on string order.
//
//	sheet, err := indexdata.ParseCSV(r)
//	if err != nil {
//	    return err // wraps ErrMalformedInput
//	}
//	next := current.Merge(sheet)
//
// # Pages
//
// Paginate slices a table into pages of PageSize entries numbered from 1,
// projecting either one index or the full record (AllIndices).
package indexdata

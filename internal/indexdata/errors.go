package indexdata

import "errors"

// Table errors
var (
	// ErrNotFound is returned for an unknown date key or an index that is
	// absent from a date's record.
	ErrNotFound = errors.New("not found")

	// ErrMalformedInput is returned when CSV content cannot be turned into
	// a header and data rows.
	ErrMalformedInput = errors.New("malformed input")
)

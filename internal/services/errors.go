package services

import "errors"

// Index service errors. Table-level failures (indexdata.ErrNotFound,
// indexdata.ErrMalformedInput) pass through wrapped.
var (
	// ErrInvalidArgument reports an index outside the configured set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedMediaType reports an upload that is neither named *.csv
	// nor sent with a CSV content type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrEmptyInput reports a zero-byte upload.
	ErrEmptyInput = errors.New("empty input")
)

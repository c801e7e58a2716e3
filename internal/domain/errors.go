package domain

import "errors"

var (
	// ErrMissingColumn is returned when an operation needs a column the table lacks.
	ErrMissingColumn = errors.New("missing column")

	// ErrNotNumeric is returned when a count column holds text that is not a number.
	ErrNotNumeric = errors.New("non-numeric value")

	// ErrParseDate is returned when a date cell cannot be parsed.
	ErrParseDate = errors.New("unparsable date")

	// ErrNoData is returned when a chart has nothing to draw.
	ErrNoData = errors.New("no data to render")
)

package zxscan

import "errors"

var (
	// ErrNotFound is returned when no stage recognised a barcode in the image.
	ErrNotFound = errors.New("barcode not found")

	// ErrRejected is returned when OCR text could not be reconstructed into a
	// plausible product code.
	ErrRejected = errors.New("reconstruction rejected")

	// ErrMalformedImage is returned for nil or zero-area rasters.
	ErrMalformedImage = errors.New("malformed image")

	// ErrStageUnavailable is returned when a stage's backing engine is missing.
	ErrStageUnavailable = errors.New("stage unavailable")

	// ErrCanceled is returned when a result arrives for a session that has
	// since been reset or closed.
	ErrCanceled = errors.New("scan canceled")

	// ErrInvalidState is returned when an operation is not allowed in the
	// scanner's current state.
	ErrInvalidState = errors.New("invalid scanner state")

	// ErrClosed is returned when the scanner is not open.
	ErrClosed = errors.New("scanner closed")
)

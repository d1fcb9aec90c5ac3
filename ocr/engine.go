// Package ocr implements the last-resort recognition stage: the capture is
// preprocessed, read by a digit-only OCR engine, and the raw text is
// repaired into a product code.
package ocr

import (
	"context"
	"errors"
)

// DigitWhitelist restricts engines to the characters of a product code.
const DigitWhitelist = "0123456789"

// ErrNotEnabled is returned by engines that were not compiled in.
var ErrNotEnabled = errors.New("ocr engine not enabled in this build")

// Engine extracts raw text from an encoded image.
type Engine interface {
	// ExtractText reads imageData (PNG) and returns the recognised text.
	ExtractText(ctx context.Context, imageData []byte) (*Result, error)

	// ProviderName returns a short name for logs.
	ProviderName() string
}

// Result contains the extracted text and metadata.
type Result struct {
	Text       string
	Confidence float64
}

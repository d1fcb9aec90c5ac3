//go:build !ocr

package ocr

import "context"

// GosseractEngine is a stub used when the "ocr" build tag is not set. To
// enable in-process Tesseract, rebuild with:
//
//	go build -tags ocr
type GosseractEngine struct{}

// NewGosseractEngine returns ErrNotEnabled.
func NewGosseractEngine(language string) (*GosseractEngine, error) {
	return nil, ErrNotEnabled
}

// ExtractText returns ErrNotEnabled.
func (e *GosseractEngine) ExtractText(ctx context.Context, imageData []byte) (*Result, error) {
	return nil, ErrNotEnabled
}

// ProviderName returns the name of the provider.
func (e *GosseractEngine) ProviderName() string {
	return "gosseract"
}

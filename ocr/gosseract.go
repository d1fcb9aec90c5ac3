//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine runs Tesseract in-process through gosseract. Each call
// uses its own client since a client is not safe for concurrent use.
//
// This engine requires the "ocr" build tag and the Tesseract development
// libraries:
//
//	go build -tags ocr
type GosseractEngine struct {
	language string
}

// NewGosseractEngine creates an in-process engine for language.
func NewGosseractEngine(language string) (*GosseractEngine, error) {
	if language == "" {
		language = "eng"
	}
	return &GosseractEngine{language: language}, nil
}

// ExtractText recognises imageData as a single line of digits. Recognition
// runs on its own goroutine so that a cancelled ctx returns immediately; the
// abandoned client is closed once Tesseract finishes.
func (e *GosseractEngine) ExtractText(ctx context.Context, imageData []byte) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.recognize(imageData)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

func (e *GosseractEngine) recognize(imageData []byte) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("set language %q: %w", e.language, err)
	}
	if err := client.SetWhitelist(DigitWhitelist); err != nil {
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return &Result{Text: strings.TrimSpace(text), Confidence: 0.90}, nil
}

// ProviderName returns the name of the provider.
func (e *GosseractEngine) ProviderName() string {
	return "gosseract"
}

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/preprocess"
	"github.com/ericlevine/zxscan/reconstruct"
)

// Decoder is the OCR stage of the cascade.
type Decoder struct {
	engine Engine
	prep   preprocess.Options
	logger zerolog.Logger
}

// NewDecoder creates an OCR stage reading through engine with the default
// preprocessing.
func NewDecoder(engine Engine, logger zerolog.Logger) *Decoder {
	return &Decoder{
		engine: engine,
		prep:   preprocess.DefaultOptions(),
		logger: logger.With().Str("component", "ocr").Logger(),
	}
}

// WithPreprocess returns a copy of d using opts for preprocessing.
func (d *Decoder) WithPreprocess(opts preprocess.Options) *Decoder {
	cp := *d
	cp.prep = opts
	return &cp
}

// Stage returns zxscan.StageOCR.
func (d *Decoder) Stage() zxscan.Stage { return zxscan.StageOCR }

// Decode preprocesses img, reads it and reconstructs a code from the text.
// The raw text is never returned as a code without reconstruction.
func (d *Decoder) Decode(ctx context.Context, img image.Image) zxscan.DecodeAttempt {
	if d.engine == nil {
		return zxscan.Failed(zxscan.StageOCR, "", fmt.Errorf("no ocr engine: %w", zxscan.ErrStageUnavailable))
	}

	prepared, err := d.prep.Apply(img)
	if err != nil {
		return zxscan.Failed(zxscan.StageOCR, "", fmt.Errorf("preprocess: %w", err))
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepared, imaging.PNG); err != nil {
		return zxscan.Failed(zxscan.StageOCR, "", fmt.Errorf("encode png: %w", err))
	}

	res, err := d.engine.ExtractText(ctx, buf.Bytes())
	if err != nil {
		return zxscan.Failed(zxscan.StageOCR, "", fmt.Errorf("%s: %w", d.engine.ProviderName(), err))
	}

	candidate, err := reconstruct.Reconstruct(res.Text)
	if err != nil {
		a := zxscan.Failed(zxscan.StageOCR, res.Text, err)
		var rej *reconstruct.RejectedError
		if errors.As(err, &rej) {
			a.Diagnostic = rej.Diagnostic()
		}
		return a
	}

	d.logger.Debug().
		Str("raw", res.Text).
		Str("digits", candidate.Digits).
		Bool("check_digit_valid", reconstruct.CheckDigitValid(candidate.Digits)).
		Msg("reconstructed code from ocr text")

	return zxscan.Succeeded(zxscan.StageOCR, res.Text, zxscan.Code{
		Text:   candidate.Digits,
		Format: zxscan.FormatDigits,
	})
}

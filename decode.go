package zxscan

import (
	"context"
	"image"
)

// Decoder runs one recognition strategy over a frame.
//
// Decode never returns an error directly: failures are carried in the
// returned attempt so that the cascade can move on to the next stage.
type Decoder interface {
	// Stage reports which cascade position the decoder occupies.
	Stage() Stage

	// Decode attempts to recognise a barcode in img.
	Decode(ctx context.Context, img image.Image) DecodeAttempt
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc struct {
	At Stage
	Fn func(ctx context.Context, img image.Image) DecodeAttempt
}

// Stage returns d.At.
func (d DecoderFunc) Stage() Stage { return d.At }

// Decode calls d.Fn.
func (d DecoderFunc) Decode(ctx context.Context, img image.Image) DecodeAttempt {
	return d.Fn(ctx, img)
}

// ValidImage reports whether img is a usable raster.
func ValidImage(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	return b.Dx() > 0 && b.Dy() > 0
}

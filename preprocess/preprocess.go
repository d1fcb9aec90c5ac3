// Package preprocess turns a raw capture into a raster suited to digit OCR.
//
// The transform is deterministic and side-effect free: a centered band is
// cropped out, downscaled, converted to grayscale, contrast boosted and
// finally composited over itself to close small gaps in digit strokes.
package preprocess

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ericlevine/zxscan"
)

// Options tunes the transform. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// BandWidth and BandHeight are the fractions of the frame kept by the
	// centered crop.
	BandWidth  float64
	BandHeight float64

	// MaxWidth bounds the output width. Narrower bands are never upscaled.
	MaxWidth int

	// ContrastGain multiplies the distance of each channel from mid-grey.
	ContrastGain float64

	// OverlayOpacity and OverlayOffset configure the self-composite pass.
	OverlayOpacity float64
	OverlayOffset  image.Point
}

// DefaultOptions returns the transform used by the OCR stage.
func DefaultOptions() Options {
	return Options{
		BandWidth:      0.80,
		BandHeight:     0.25,
		MaxWidth:       1200,
		ContrastGain:   4,
		OverlayOpacity: 0.5,
		OverlayOffset:  image.Pt(1, 0),
	}
}

// Preprocess applies DefaultOptions to img.
func Preprocess(img image.Image) (*image.NRGBA, error) {
	return DefaultOptions().Apply(img)
}

// Apply runs the transform. It fails only when img is nil or the band
// collapses to zero pixels.
func (o Options) Apply(img image.Image) (*image.NRGBA, error) {
	if !zxscan.ValidImage(img) {
		return nil, zxscan.ErrMalformedImage
	}
	b := img.Bounds()
	w := int(float64(b.Dx())*o.BandWidth + 0.5)
	h := int(float64(b.Dy())*o.BandHeight + 0.5)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("band %dx%d of %dx%d frame: %w", w, h, b.Dx(), b.Dy(), zxscan.ErrMalformedImage)
	}

	band := imaging.CropCenter(img, w, h)
	if o.MaxWidth > 0 && w > o.MaxWidth {
		band = imaging.Resize(band, o.MaxWidth, 0, imaging.Lanczos)
	}

	gray := imaging.Grayscale(band)
	boosted := imaging.AdjustContrast(gray, ContrastPercentage(o.ContrastGain))
	if o.OverlayOpacity <= 0 {
		return boosted, nil
	}
	return imaging.Overlay(boosted, boosted, o.OverlayOffset, o.OverlayOpacity), nil
}

// ContrastPercentage converts a linear contrast gain into the percentage
// accepted by imaging.AdjustContrast, which maps p in (0, 100) to a gain of
// 1/(1-p/100).
func ContrastPercentage(gain float64) float64 {
	switch {
	case gain <= 0:
		return -100
	case gain <= 1:
		return (gain - 1) * 100
	default:
		return math.Min(100*(1-1/gain), 99.9)
	}
}

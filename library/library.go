// Package library implements the second cascade stage: a general-purpose
// 1D barcode reader (gozxing) applied to the original, unprocessed capture.
package library

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/charset"
)

// Decoder is the library stage of the cascade.
type Decoder struct {
	tryHarder bool
	logger    zerolog.Logger
}

// NewDecoder creates a library stage. TRY_HARDER is enabled.
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{
		tryHarder: true,
		logger:    logger.With().Str("component", "library").Logger(),
	}
}

// Stage returns zxscan.StageLibrary.
func (d *Decoder) Stage() zxscan.Stage { return zxscan.StageLibrary }

// possibleFormats lists every format the stage looks for.
var possibleFormats = []gozxing.BarcodeFormat{
	gozxing.BarcodeFormat_EAN_13,
	gozxing.BarcodeFormat_EAN_8,
	gozxing.BarcodeFormat_UPC_A,
	gozxing.BarcodeFormat_UPC_E,
	gozxing.BarcodeFormat_CODE_128,
	gozxing.BarcodeFormat_CODE_39,
	gozxing.BarcodeFormat_ITF,
}

// readers builds fresh readers for one decode; product symbologies first.
func readers() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewEAN13Reader(),
		oned.NewEAN8Reader(),
		oned.NewUPCAReader(),
		oned.NewUPCEReader(),
		oned.NewCode128Reader(),
		oned.NewCode39Reader(),
		oned.NewITFReader(),
	}
}

func (d *Decoder) hints() map[gozxing.DecodeHintType]interface{} {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: possibleFormats,
	}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return hints
}

// Decode tries each reader in sequence until one succeeds.
func (d *Decoder) Decode(ctx context.Context, img image.Image) zxscan.DecodeAttempt {
	if !zxscan.ValidImage(img) {
		return zxscan.Failed(zxscan.StageLibrary, "", zxscan.ErrMalformedImage)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return zxscan.Failed(zxscan.StageLibrary, "", fmt.Errorf("binarize: %w", err))
	}

	hints := d.hints()
	for _, reader := range readers() {
		if err := ctx.Err(); err != nil {
			return zxscan.Failed(zxscan.StageLibrary, "", err)
		}
		result, err := tryDecode(reader, bmp, hints)
		if err != nil || result == nil {
			continue
		}
		text := charset.ToUTF8([]byte(result.GetText()))
		format := mapFormat(result.GetBarcodeFormat())
		d.logger.Debug().Str("format", format.String()).Str("text", text).Msg("decoded")
		return zxscan.Succeeded(zxscan.StageLibrary, text, zxscan.Code{Text: text, Format: format})
	}
	return zxscan.Failed(zxscan.StageLibrary, "", zxscan.ErrNotFound)
}

// tryDecode calls reader.Decode but recovers from panics that readers may
// raise on malformed input, converting them to errors.
func tryDecode(reader gozxing.Reader, bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (result *gozxing.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("reader panic: %v", r)
		}
	}()
	return reader.Decode(bmp, hints)
}

// mapFormat maps a gozxing format to ours.
func mapFormat(format gozxing.BarcodeFormat) zxscan.Format {
	switch format {
	case gozxing.BarcodeFormat_EAN_13:
		return zxscan.FormatEAN13
	case gozxing.BarcodeFormat_EAN_8:
		return zxscan.FormatEAN8
	case gozxing.BarcodeFormat_UPC_A:
		return zxscan.FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return zxscan.FormatUPCE
	case gozxing.BarcodeFormat_CODE_128:
		return zxscan.FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return zxscan.FormatCode39
	case gozxing.BarcodeFormat_ITF:
		return zxscan.FormatITF
	default:
		return zxscan.FormatUnknown
	}
}

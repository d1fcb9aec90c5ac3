// Package imagefile decodes still images picked from a gallery or produced
// by a platform camera UI.
package imagefile

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ericlevine/zxscan"
)

// Decode reads an image in any registered format (PNG, JPEG, GIF, BMP,
// TIFF, WebP), rotating it upright according to its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w: %v", zxscan.ErrMalformedImage, err)
	}
	if !zxscan.ValidImage(img) {
		return nil, zxscan.ErrMalformedImage
	}
	return img, nil
}

// Open decodes the image file at path.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

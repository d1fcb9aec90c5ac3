package preprocess

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ericlevine/zxscan"
)

func twoTone(w, h int, left, right uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := left
			if x >= w/2 {
				v = right
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 0xFF})
		}
	}
	return img
}

func TestPreprocessDropsColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 0xFF})
		}
	}
	out, err := Preprocess(img)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != out.Pix[i+1] || out.Pix[i+1] != out.Pix[i+2] {
			t.Fatalf("pixel %d not grey: %v", i/4, out.Pix[i:i+3])
		}
	}
}

func TestPreprocessDimensions(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		wantW      int
		minH, maxH int
	}{
		{"downscaled", 2000, 1000, 1200, 187, 188},
		{"kept", 500, 400, 400, 100, 100},
		{"exact limit", 1500, 800, 1200, 200, 200},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Preprocess(twoTone(tc.w, tc.h, 60, 200))
			if err != nil {
				t.Fatalf("Preprocess error: %v", err)
			}
			b := out.Bounds()
			if b.Dx() != tc.wantW {
				t.Errorf("width = %d, want %d", b.Dx(), tc.wantW)
			}
			if b.Dy() < tc.minH || b.Dy() > tc.maxH {
				t.Errorf("height = %d, want in [%d, %d]", b.Dy(), tc.minH, tc.maxH)
			}
		})
	}
}

func TestPreprocessGrayscaleAndContrast(t *testing.T) {
	out, err := Preprocess(twoTone(400, 400, 100, 160))
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(out.Pix); i += 4 {
		r, g, b := out.Pix[i], out.Pix[i+1], out.Pix[i+2]
		if r != g || g != b {
			t.Fatalf("pixel %d not grey: %d,%d,%d", i/4, r, g, b)
		}
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if lo > 40 || hi < 215 {
		t.Errorf("contrast not boosted: range [%d, %d]", lo, hi)
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	src := twoTone(640, 480, 30, 220)
	a, err := Preprocess(src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Preprocess(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two runs over the same input differ")
	}
}

func TestPreprocessMalformed(t *testing.T) {
	inputs := map[string]image.Image{
		"nil":       nil,
		"zero area": image.NewRGBA(image.Rect(0, 0, 0, 0)),
		"flat band": image.NewRGBA(image.Rect(0, 0, 4, 1)),
	}
	for name, img := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := Preprocess(img); !errors.Is(err, zxscan.ErrMalformedImage) {
				t.Errorf("error = %v, want ErrMalformedImage", err)
			}
		})
	}
}

func TestContrastPercentage(t *testing.T) {
	tests := []struct {
		gain float64
		want float64
	}{
		{4, 75},
		{2, 50},
		{1, 0},
		{0.5, -50},
	}
	for _, tc := range tests {
		if got := ContrastPercentage(tc.gain); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ContrastPercentage(%v) = %v, want %v", tc.gain, got, tc.want)
		}
	}
}

func BenchmarkPreprocess(b *testing.B) {
	src := twoTone(1920, 1080, 40, 210)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Preprocess(src); err != nil {
			b.Fatal(err)
		}
	}
}

package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
)

type fakeEngine struct {
	text   string
	err    error
	calls  int
	images [][]byte
}

func (e *fakeEngine) ExtractText(ctx context.Context, imageData []byte) (*Result, error) {
	e.calls++
	e.images = append(e.images, imageData)
	if e.err != nil {
		return nil, e.err
	}
	return &Result{Text: e.text, Confidence: 1}, nil
}

func (e *fakeEngine) ProviderName() string { return "fake" }

func frame(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/7)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 20})
			} else {
				img.SetGray(x, y, color.Gray{Y: 235})
			}
		}
	}
	return img
}

func TestDecoderReconstructsEngineText(t *testing.T) {
	engine := &fakeEngine{text: "8712345678901"}
	d := NewDecoder(engine, zerolog.Nop())

	a := d.Decode(context.Background(), frame(640, 480))
	if !a.Success {
		t.Fatalf("attempt failed: %v", a.Err)
	}
	if a.Stage != zxscan.StageOCR {
		t.Errorf("Stage = %v, want ocr", a.Stage)
	}
	if a.Code.Text != "8712345678901" || a.Code.Format != zxscan.FormatDigits {
		t.Errorf("Code = %+v", a.Code)
	}
	if a.RawText != engine.text {
		t.Errorf("RawText = %q, want %q", a.RawText, engine.text)
	}
	if engine.calls != 1 {
		t.Errorf("engine called %d times, want 1", engine.calls)
	}
}

func TestDecoderSendsPreprocessedPNG(t *testing.T) {
	engine := &fakeEngine{text: "4006381333931"}
	d := NewDecoder(engine, zerolog.Nop())
	d.Decode(context.Background(), frame(2000, 1000))

	if len(engine.images) != 1 {
		t.Fatalf("engine saw %d images", len(engine.images))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(engine.images[0]))
	if err != nil {
		t.Fatalf("engine input is not PNG: %v", err)
	}
	if cfg.Width != 1200 {
		t.Errorf("engine input width = %d, want 1200", cfg.Width)
	}
	if cfg.Height >= 1000/2 {
		t.Errorf("engine input height = %d, want cropped band", cfg.Height)
	}
}

func TestDecoderRejection(t *testing.T) {
	d := NewDecoder(&fakeEngine{text: "AB12"}, zerolog.Nop())
	a := d.Decode(context.Background(), frame(320, 240))
	if a.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(a.Err, zxscan.ErrRejected) {
		t.Errorf("Err = %v, want ErrRejected", a.Err)
	}
	if a.Diagnostic != "12" {
		t.Errorf("Diagnostic = %q, want %q", a.Diagnostic, "12")
	}
	if a.RawText != "AB12" {
		t.Errorf("RawText = %q", a.RawText)
	}
}

func TestDecoderFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		engine  Engine
		img     image.Image
		wantErr error
		calls   int
	}{
		{"engine error", &fakeEngine{err: boom}, frame(320, 240), boom, 1},
		{"malformed image", &fakeEngine{text: "8712345678901"}, image.NewGray(image.Rect(0, 0, 4, 1)), zxscan.ErrMalformedImage, 0},
		{"no engine", nil, frame(320, 240), zxscan.ErrStageUnavailable, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(tc.engine, zerolog.Nop())
			a := d.Decode(context.Background(), tc.img)
			if a.Success {
				t.Fatal("expected failure")
			}
			if !errors.Is(a.Err, tc.wantErr) {
				t.Errorf("Err = %v, want %v", a.Err, tc.wantErr)
			}
			if fe, ok := tc.engine.(*fakeEngine); ok && fe.calls != tc.calls {
				t.Errorf("engine called %d times, want %d", fe.calls, tc.calls)
			}
		})
	}
}

func TestCLIEngineMissingBinary(t *testing.T) {
	e := NewCLIEngine("/nonexistent/tesseract", "")
	if e.Available() {
		t.Fatal("Available() = true for missing binary")
	}
	if _, err := e.ExtractText(context.Background(), []byte{0x89, 'P', 'N', 'G'}); err == nil {
		t.Error("expected error from missing binary")
	}
}

package zxscan

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type recordingDecoder struct {
	stage   Stage
	attempt func() DecodeAttempt
	calls   *[]Stage
}

func (d recordingDecoder) Stage() Stage { return d.stage }

func (d recordingDecoder) Decode(ctx context.Context, img image.Image) DecodeAttempt {
	*d.calls = append(*d.calls, d.stage)
	return d.attempt()
}

func fail(s Stage) func() DecodeAttempt {
	return func() DecodeAttempt { return Failed(s, "", ErrNotFound) }
}

func succeed(s Stage, text string) func() DecodeAttempt {
	return func() DecodeAttempt {
		return Succeeded(s, text, Code{Text: text, Format: FormatEAN13, Stage: s})
	}
}

func blankImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 64, 32))
}

func TestCascadeOrderAndShortCircuit(t *testing.T) {
	tests := []struct {
		name      string
		native    func() DecodeAttempt
		library   func() DecodeAttempt
		ocr       func() DecodeAttempt
		wantCalls []Stage
		wantStage Stage
	}{
		{
			name:      "native wins",
			native:    succeed(StageNative, "4006381333931"),
			library:   succeed(StageLibrary, "x"),
			ocr:       succeed(StageOCR, "y"),
			wantCalls: []Stage{StageNative},
			wantStage: StageNative,
		},
		{
			name:      "library after native miss",
			native:    fail(StageNative),
			library:   succeed(StageLibrary, "4006381333931"),
			ocr:       succeed(StageOCR, "y"),
			wantCalls: []Stage{StageNative, StageLibrary},
			wantStage: StageLibrary,
		},
		{
			name:      "ocr last",
			native:    fail(StageNative),
			library:   fail(StageLibrary),
			ocr:       succeed(StageOCR, "8712345678901"),
			wantCalls: []Stage{StageNative, StageLibrary, StageOCR},
			wantStage: StageOCR,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls []Stage
			// Installed out of order; the cascade sorts by stage.
			c := NewCascade(zerolog.Nop(),
				recordingDecoder{StageOCR, tc.ocr, &calls},
				nil,
				recordingDecoder{StageNative, tc.native, &calls},
				recordingDecoder{StageLibrary, tc.library, &calls},
			)
			out, err := c.Run(context.Background(), blankImage())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if out.Code.Stage != tc.wantStage {
				t.Errorf("stage = %v, want %v", out.Code.Stage, tc.wantStage)
			}
			if len(calls) != len(tc.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tc.wantCalls)
			}
			for i := range calls {
				if calls[i] != tc.wantCalls[i] {
					t.Errorf("calls = %v, want %v", calls, tc.wantCalls)
					break
				}
			}
			if len(out.Attempts) != len(tc.wantCalls) {
				t.Errorf("attempts = %d, want %d", len(out.Attempts), len(tc.wantCalls))
			}
		})
	}
}

func TestCascadeExhausted(t *testing.T) {
	var calls []Stage
	ocrMiss := func() DecodeAttempt {
		a := Failed(StageOCR, "AB12", ErrRejected)
		a.Diagnostic = "12"
		return a
	}
	c := NewCascade(zerolog.Nop(),
		recordingDecoder{StageNative, fail(StageNative), &calls},
		recordingDecoder{StageLibrary, fail(StageLibrary), &calls},
		recordingDecoder{StageOCR, ocrMiss, &calls},
	)
	_, err := c.Run(context.Background(), blankImage())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T is not *ExhaustedError", err)
	}
	if exhausted.Diagnostic != "12" {
		t.Errorf("diagnostic = %q, want %q", exhausted.Diagnostic, "12")
	}
	if len(exhausted.Attempts) != 3 {
		t.Errorf("attempts = %d, want 3", len(exhausted.Attempts))
	}
	for _, a := range exhausted.Attempts {
		if a.Success || a.Err == nil {
			t.Errorf("attempt %+v should be a failure with an error", a)
		}
	}
	if !strings.Contains(err.Error(), `"12"`) {
		t.Errorf("error text %q lacks diagnostic", err.Error())
	}
}

func TestCascadeRecoversPanics(t *testing.T) {
	var calls []Stage
	boom := func() DecodeAttempt { panic("index out of range") }
	c := NewCascade(zerolog.Nop(),
		recordingDecoder{StageNative, boom, &calls},
		recordingDecoder{StageLibrary, succeed(StageLibrary, "96385074"), &calls},
	)
	out, err := c.Run(context.Background(), blankImage())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Attempts[0].Success || out.Attempts[0].Err == nil {
		t.Errorf("panicking stage recorded as %+v", out.Attempts[0])
	}
	if out.Attempts[0].Stage != StageNative {
		t.Errorf("panicking stage = %v, want native", out.Attempts[0].Stage)
	}
	if out.Code.Text != "96385074" {
		t.Errorf("code = %q", out.Code.Text)
	}
}

func TestCascadeStopsOnCancel(t *testing.T) {
	var calls []Stage
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := func() DecodeAttempt {
		cancel()
		return Failed(StageNative, "", ErrNotFound)
	}
	c := NewCascade(zerolog.Nop(),
		recordingDecoder{StageNative, cancelling, &calls},
		recordingDecoder{StageLibrary, succeed(StageLibrary, "x"), &calls},
	)
	_, err := c.Run(ctx, blankImage())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, want only native", calls)
	}
}

func TestCascadeInputErrors(t *testing.T) {
	c := NewCascade(zerolog.Nop())
	if _, err := c.Run(context.Background(), nil); !errors.Is(err, ErrMalformedImage) {
		t.Errorf("nil image: %v, want ErrMalformedImage", err)
	}
	if _, err := c.Run(context.Background(), image.NewGray(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrMalformedImage) {
		t.Errorf("empty image: %v, want ErrMalformedImage", err)
	}
	if _, err := c.Run(context.Background(), blankImage()); !errors.Is(err, ErrStageUnavailable) {
		t.Errorf("no decoders: %v, want ErrStageUnavailable", err)
	}
	if got := c.Stages(); len(got) != 0 {
		t.Errorf("Stages() = %v, want none", got)
	}
}

func TestFormatAndStageNames(t *testing.T) {
	if StageNative.String() != "native" || StageLibrary.String() != "library" || StageOCR.String() != "ocr" {
		t.Errorf("stage names: %s %s %s", StageNative, StageLibrary, StageOCR)
	}
	if FormatEAN13.String() == FormatUnknown.String() {
		t.Errorf("EAN-13 has no name")
	}
}

package zxscan

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Cascade tries its decoders one at a time in stage order and stops at the
// first success.
type Cascade struct {
	decoders []Decoder
	logger   zerolog.Logger
}

// NewCascade creates a cascade over the given decoders. Nil decoders are
// skipped, and the rest are ordered native, library, OCR regardless of the
// order they were passed in.
func NewCascade(logger zerolog.Logger, decoders ...Decoder) *Cascade {
	var ds []Decoder
	for _, d := range decoders {
		if d != nil {
			ds = append(ds, d)
		}
	}
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Stage() < ds[j].Stage()
	})
	return &Cascade{
		decoders: ds,
		logger:   logger.With().Str("component", "cascade").Logger(),
	}
}

// Stages returns the installed stages in the order they run.
func (c *Cascade) Stages() []Stage {
	stages := make([]Stage, len(c.decoders))
	for i, d := range c.decoders {
		stages[i] = d.Stage()
	}
	return stages
}

// Outcome is the successful result of a cascade run.
type Outcome struct {
	Code     Code
	Attempts []DecodeAttempt
}

// ExhaustedError reports that every stage failed.
type ExhaustedError struct {
	Attempts []DecodeAttempt

	// Diagnostic is the OCR stage's diagnostic text, if OCR ran.
	Diagnostic string
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %s", a.Stage, a.ErrorMessage())
	}
	msg := "all stages failed (" + strings.Join(parts, "; ") + ")"
	if e.Diagnostic != "" {
		msg += fmt.Sprintf(", ocr read %q", e.Diagnostic)
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrNotFound) match.
func (e *ExhaustedError) Unwrap() error { return ErrNotFound }

// Run decodes img. It returns the first successful attempt, or an
// *ExhaustedError listing every failed attempt. If ctx is done between
// stages, Run stops and returns the context's error.
func (c *Cascade) Run(ctx context.Context, img image.Image) (*Outcome, error) {
	if !ValidImage(img) {
		return nil, ErrMalformedImage
	}
	if len(c.decoders) == 0 {
		return nil, fmt.Errorf("no decoders installed: %w", ErrStageUnavailable)
	}

	var attempts []DecodeAttempt
	for _, d := range c.decoders {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cascade interrupted before %s stage: %w", d.Stage(), err)
		}
		a := runStage(ctx, d, img)
		attempts = append(attempts, a)

		event := c.logger.Debug().
			Str("stage", a.Stage.String()).
			Bool("success", a.Success).
			Dur("elapsed", a.Elapsed)
		if a.Err != nil {
			event = event.Err(a.Err)
		}
		event.Msg("stage finished")

		if a.Success {
			return &Outcome{Code: a.Code, Attempts: attempts}, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cascade interrupted: %w", err)
	}

	exhausted := &ExhaustedError{Attempts: attempts}
	for _, a := range attempts {
		if a.Stage == StageOCR {
			exhausted.Diagnostic = a.Diagnostic
		}
	}
	return nil, exhausted
}

// runStage calls d.Decode but recovers from panics that third-party decoders
// may raise on malformed input, converting them to failed attempts.
func runStage(ctx context.Context, d Decoder, img image.Image) (a DecodeAttempt) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a = Failed(d.Stage(), "", fmt.Errorf("%s decoder panic: %v", d.Stage(), r))
		}
		a.Stage = d.Stage()
		a.Elapsed = time.Since(start)
	}()
	return d.Decode(ctx, img)
}

// Package camera owns the camera hardware session: acquisition through a
// ladder of increasingly relaxed constraints, zoom capability and debounced
// zoom application, frame capture and release.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Facing selects the front or back camera.
type Facing int

const (
	FacingEnvironment Facing = iota
	FacingUser
)

// String returns the name of the facing mode.
func (f Facing) String() string {
	switch f {
	case FacingUser:
		return "user"
	default:
		return "environment"
	}
}

// Constraints describe one acquisition attempt. Zero fields are left to the
// driver's defaults.
type Constraints struct {
	Width         int
	Height        int
	FrameRate     float64
	Stabilization bool
	Facing        Facing
}

// Ladder returns the constraint sets tried by Open, most specific first.
func Ladder(facing Facing) []Constraints {
	return []Constraints{
		{Width: 1920, Height: 1080, FrameRate: 30, Stabilization: true, Facing: facing},
		{Width: 1280, Height: 720, Facing: facing},
		{Facing: facing},
	}
}

// Driver acquires camera tracks. Implementations return ErrOverconstrained
// when a camera exists but cannot meet c, and errors wrapping
// ErrPermissionDenied, ErrDeviceNotFound or ErrDeviceBusy otherwise.
type Driver interface {
	Acquire(ctx context.Context, c Constraints) (Track, error)
}

// Track is one live video track.
type Track interface {
	// ZoomRange reports the hardware zoom range, if zoom is supported.
	ZoomRange() (ZoomCapability, bool)

	// ApplyZoom sends a zoom value to the hardware.
	ApplyZoom(value float64) error

	// Frame returns the current frame at native resolution.
	Frame(ctx context.Context) (image.Image, error)

	// Stop releases the track.
	Stop() error
}

const (
	// MaxZoomCeiling caps the reported zoom range; extreme zoom levels are
	// unusable for scanning.
	MaxZoomCeiling = 5.0

	// DefaultZoomDebounce is the delay before a zoom request reaches the
	// hardware.
	DefaultZoomDebounce = 150 * time.Millisecond

	defaultZoomStep = 0.1
)

// ZoomCapability is a track's optical zoom range.
type ZoomCapability struct {
	Min  float64
	Max  float64
	Step float64
}

// Clamp returns z limited to [c.Min, c.Max].
func (c ZoomCapability) Clamp(z float64) float64 {
	if z > c.Max {
		z = c.Max
	}
	if z < c.Min {
		z = c.Min
	}
	return z
}

// limit applies the safety ceiling and fills in a missing step.
func (c ZoomCapability) limit(ceiling float64) ZoomCapability {
	if ceiling > 0 && c.Max > ceiling {
		c.Max = ceiling
	}
	if c.Max < c.Min {
		c.Max = c.Min
	}
	if c.Step <= 0 {
		c.Step = defaultZoomStep
	}
	return c
}

// ZoomState is the zoom value last requested through a stream.
type ZoomState struct {
	Current float64
	Pending bool
}

// Options configures a Device.
type Options struct {
	// ZoomDebounce is the zoom coalescing delay. Zero means
	// DefaultZoomDebounce.
	ZoomDebounce time.Duration

	// MaxZoom is the zoom ceiling. Zero means MaxZoomCeiling.
	MaxZoom float64
}

// Device hands out at most one open Stream at a time.
type Device struct {
	driver Driver
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	stream *Stream
}

// NewDevice creates a device backed by driver.
func NewDevice(driver Driver, logger zerolog.Logger, opts Options) *Device {
	if opts.ZoomDebounce <= 0 {
		opts.ZoomDebounce = DefaultZoomDebounce
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = MaxZoomCeiling
	}
	return &Device{
		driver: driver,
		opts:   opts,
		logger: logger.With().Str("component", "camera").Logger(),
	}
}

// Open stops any stream still open, then walks Ladder(facing) until a rung
// is acquired. A permission error ends the walk at once. When every rung
// fails the returned error wraps ErrPermissionDenied, ErrDeviceNotFound or
// ErrDeviceBusy.
func (d *Device) Open(ctx context.Context, facing Facing) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		if err := d.stream.Close(); err != nil {
			d.logger.Warn().Err(err).Msg("closing previous stream")
		}
		d.stream = nil
	}
	if d.driver == nil {
		return nil, ErrDeviceNotFound
	}

	var lastErr error
	for i, c := range Ladder(facing) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		track, err := d.driver.Acquire(ctx, c)
		if err == nil {
			d.stream = newStream(track, c, d.opts, d.logger)
			d.logger.Info().
				Int("rung", i).
				Int("width", c.Width).
				Int("height", c.Height).
				Str("facing", facing.String()).
				Msg("camera acquired")
			return d.stream, nil
		}
		d.logger.Debug().Err(err).Int("rung", i).Msg("constraint set rejected")
		if Classify(err) == ErrPermissionDenied {
			if errors.Is(err, ErrPermissionDenied) {
				return nil, fmt.Errorf("open camera: %w", err)
			}
			return nil, fmt.Errorf("open camera: %w: %v", ErrPermissionDenied, err)
		}
		lastErr = err
	}

	if errors.Is(lastErr, ErrOverconstrained) {
		return nil, fmt.Errorf("open camera: %w: %v", ErrDeviceNotFound, lastErr)
	}
	classified := Classify(lastErr)
	if errors.Is(lastErr, classified) {
		return nil, fmt.Errorf("open camera: %w", lastErr)
	}
	return nil, fmt.Errorf("open camera: %w: %v", classified, lastErr)
}

// Current returns the open stream, or nil.
func (d *Device) Current() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

// Close stops the open stream, if any. It is safe to call repeatedly.
func (d *Device) Close() error {
	d.mu.Lock()
	s := d.stream
	d.stream = nil
	d.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Close()
}

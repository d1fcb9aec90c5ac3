package camera

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// Stream is an acquired camera track with zoom handling.
type Stream struct {
	track       Track
	constraints Constraints
	logger      zerolog.Logger

	capability ZoomCapability
	hasZoom    bool
	zoom       *debouncer

	mu      sync.Mutex
	current float64
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

func newStream(track Track, c Constraints, opts Options, logger zerolog.Logger) *Stream {
	s := &Stream{
		track:       track,
		constraints: c,
		logger:      logger,
	}
	if zc, ok := track.ZoomRange(); ok {
		s.capability = zc.limit(opts.MaxZoom)
		s.hasZoom = true
		s.current = s.capability.Clamp(1)
	}
	s.zoom = newDebouncer(opts.ZoomDebounce, track.ApplyZoom, func(v float64, err error) {
		// The requested value stays current; the next tick sends it again.
		s.logger.Warn().Err(err).Float64("zoom", v).Msg("zoom not applied")
	})
	return s
}

// Constraints returns the rung the stream was acquired with.
func (s *Stream) Constraints() Constraints {
	return s.constraints
}

// ZoomCapability returns the clamped zoom range. ok is false when the track
// has no zoom, in which case zoom controls should be hidden.
func (s *Stream) ZoomCapability() (ZoomCapability, bool) {
	return s.capability, s.hasZoom
}

// SetZoom clamps z into the capability range, makes it current and
// schedules it for the hardware. It returns the clamped value.
func (s *Stream) SetZoom(z float64) (float64, error) {
	if !s.hasZoom {
		return 0, ErrNoZoom
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrStreamClosed
	}
	z = s.capability.Clamp(z)
	s.current = z
	s.mu.Unlock()

	s.zoom.Request(z)
	return z, nil
}

// Zoom returns the current zoom state.
func (s *Stream) Zoom() ZoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ZoomState{Current: s.current, Pending: s.zoom.Pending()}
}

// FlushZoom sends a zoom value still inside its debounce window to the
// hardware and waits for it.
func (s *Stream) FlushZoom() {
	s.zoom.Flush()
}

// CaptureFrame flushes any pending zoom, then returns the current frame.
func (s *Stream) CaptureFrame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrStreamClosed
	}
	s.FlushZoom()
	return s.track.Frame(ctx)
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels pending zoom and stops the track. Only the first call has
// any effect.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.zoom.Stop()
		s.closeErr = s.track.Stop()
	})
	return s.closeErr
}

// Package scanner drives a barcode scan from camera or image intake through
// the decoder cascade to a confirmed result.
//
// A Controller owns at most one capture session at a time. Decoding runs
// outside the controller's lock, so Reset and Close may be called from
// another goroutine while a capture is being processed; a result that
// arrives after the session it belongs to was torn down is discarded.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/camera"
	"github.com/ericlevine/zxscan/imagefile"
)

// Camera acquires and releases camera streams. *camera.Device implements it.
type Camera interface {
	Open(ctx context.Context, facing camera.Facing) (*camera.Stream, error)
	Close() error
}

// Recognizer decodes a captured frame. *zxscan.Cascade implements it.
type Recognizer interface {
	Run(ctx context.Context, img image.Image) (*zxscan.Outcome, error)
}

// Callbacks are the host hooks. Any of them may be nil. They are invoked
// without the controller's lock held, so they may call back into the
// Controller.
type Callbacks struct {
	// OnScan receives the confirmed code, exactly once per confirmation.
	OnScan func(zxscan.Code)
	// OnClose fires once per open cycle when the scanner closes.
	OnClose func()
	// OnStateChange receives a snapshot after every transition.
	OnStateChange func(Snapshot)
	// OnHaptic fires on entering StateSuccess.
	OnHaptic func()
}

// Session is one capture session, from camera acquisition or image intake
// until reset or close.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Frame     image.Image

	live   bool
	facing camera.Facing
	stream *camera.Stream
	cancel context.CancelFunc
}

// Snapshot is a point-in-time copy of the controller's observable state.
type Snapshot struct {
	State     State
	Open      bool
	SessionID uuid.UUID
	CreatedAt time.Time

	// Code is set in StateSuccess.
	Code *zxscan.Code
	// Diagnostic is the text OCR read when recognition failed.
	Diagnostic string
	// Message is the user-facing text for Err.
	Message string
	Err     error

	Attempts []zxscan.DecodeAttempt

	Zoom           camera.ZoomState
	ZoomCapability camera.ZoomCapability
	HasZoom        bool
}

// Controller is the scanner state machine.
type Controller struct {
	cam    Camera
	rec    Recognizer
	cb     Callbacks
	logger zerolog.Logger

	mu         sync.Mutex
	open       bool
	state      State
	gen        uint64
	session    *Session
	code       *zxscan.Code
	err        error
	diagnostic string
	attempts   []zxscan.DecodeAttempt

	// Where Retry goes after an error.
	retryLive   bool
	retryFacing camera.Facing
}

// New returns an open Controller in StateIdle. cam may be nil when only
// image intake is used.
func New(cam Camera, rec Recognizer, logger zerolog.Logger, cb Callbacks) *Controller {
	return &Controller{
		cam:    cam,
		rec:    rec,
		cb:     cb,
		logger: logger.With().Str("component", "scanner").Logger(),
		open:   true,
		state:  StateIdle,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      c.state,
		Open:       c.open,
		Diagnostic: c.diagnostic,
		Err:        c.err,
		Message:    Message(c.err),
	}
	if c.code != nil {
		code := *c.code
		s.Code = &code
	}
	if len(c.attempts) > 0 {
		s.Attempts = append([]zxscan.DecodeAttempt(nil), c.attempts...)
	}
	if c.session != nil {
		s.SessionID = c.session.ID
		s.CreatedAt = c.session.CreatedAt
		if st := c.session.stream; st != nil {
			s.Zoom = st.Zoom()
			s.ZoomCapability, s.HasZoom = st.ZoomCapability()
		}
	}
	return s
}

func (c *Controller) emit(snaps ...Snapshot) {
	if c.cb.OnStateChange == nil {
		return
	}
	for _, s := range snaps {
		c.cb.OnStateChange(s)
	}
}

// setStateLocked moves to state and returns the snapshot to emit once the
// lock is released.
func (c *Controller) setStateLocked(state State) Snapshot {
	if c.state != state {
		ev := c.logger.Debug().Str("from", c.state.String()).Str("to", state.String())
		if c.session != nil {
			ev = ev.Str("session", c.session.ID.String())
		}
		ev.Msg("state change")
	}
	c.state = state
	return c.snapshotLocked()
}

// teardownLocked cancels any in-flight decode, releases the camera stream
// and drops the session and result. It bumps the generation so late
// results from the old session are discarded.
func (c *Controller) teardownLocked() {
	c.gen++
	if s := c.session; s != nil {
		if s.cancel != nil {
			s.cancel()
		}
		if s.stream != nil {
			if err := s.stream.Close(); err != nil {
				c.logger.Warn().Err(err).Msg("release camera stream")
			}
			s.stream = nil
		}
	}
	c.session = nil
	c.code = nil
	c.err = nil
	c.diagnostic = ""
	c.attempts = nil
}

// SetOpen reflects host visibility. Hiding the scanner closes it; showing
// it again starts a new open cycle in StateIdle.
func (c *Controller) SetOpen(open bool) {
	if !open {
		c.Close()
		return
	}
	c.mu.Lock()
	if c.open {
		c.mu.Unlock()
		return
	}
	c.open = true
	snap := c.setStateLocked(StateIdle)
	c.mu.Unlock()
	c.emit(snap)
}

// StartLive acquires the camera facing the given direction and enters
// StateLiveView. A device failure moves the controller to StateError and
// is returned.
func (c *Controller) StartLive(ctx context.Context, facing camera.Facing) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return zxscan.ErrClosed
	}
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("start live view in state %s: %w", state, zxscan.ErrInvalidState)
	}
	if c.cam == nil {
		c.mu.Unlock()
		return c.fail(c.currentGen(), fmt.Errorf("no camera configured: %w", camera.ErrDeviceNotFound), true, facing)
	}
	c.teardownLocked()
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.cam.Open(ctx, facing)

	c.mu.Lock()
	if gen != c.gen || !c.open {
		c.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		return zxscan.ErrCanceled
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Error().Err(err).Str("facing", facing.String()).Msg("camera unavailable")
		return c.fail(gen, err, true, facing)
	}
	c.session = &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		live:      true,
		facing:    facing,
		stream:    stream,
	}
	c.logger.Info().
		Str("session", c.session.ID.String()).
		Int("width", stream.Constraints().Width).
		Int("height", stream.Constraints().Height).
		Msg("live view started")
	snap := c.setStateLocked(StateLiveView)
	c.mu.Unlock()
	c.emit(snap)
	return nil
}

func (c *Controller) currentGen() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetZoom requests a zoom level for the live stream and returns the value
// after clamping to the device's range.
func (c *Controller) SetZoom(z float64) (float64, error) {
	c.mu.Lock()
	if c.state != StateLiveView || c.session == nil || c.session.stream == nil {
		state := c.state
		c.mu.Unlock()
		return 0, fmt.Errorf("zoom in state %s: %w", state, zxscan.ErrInvalidState)
	}
	stream := c.session.stream
	c.mu.Unlock()

	v, err := stream.SetZoom(z)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
	return v, nil
}

// Capture grabs the current frame from the live stream, releases the
// camera and runs the frame through the recognizer. It blocks until
// recognition finishes and returns the recognised code.
func (c *Controller) Capture(ctx context.Context) (*zxscan.Code, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, zxscan.ErrClosed
	}
	if c.state != StateLiveView || c.session == nil || c.session.stream == nil {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("capture in state %s: %w", state, zxscan.ErrInvalidState)
	}
	gen := c.gen
	session := c.session
	stream := session.stream
	c.mu.Unlock()

	frame, err := stream.CaptureFrame(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, zxscan.ErrCanceled
	}
	if err != nil {
		c.mu.Unlock()
		return nil, c.fail(gen, fmt.Errorf("capture frame: %w", err), true, session.facing)
	}
	if cerr := stream.Close(); cerr != nil {
		c.logger.Warn().Err(cerr).Msg("release camera stream")
	}
	session.stream = nil
	session.Frame = frame
	c.mu.Unlock()

	return c.process(ctx, gen, frame)
}

// SubmitImage runs img through the recognizer as a gallery capture. A live
// view, if any, is torn down first.
func (c *Controller) SubmitImage(ctx context.Context, img image.Image) (*zxscan.Code, error) {
	c.mu.Lock()
	if err := c.intakeAllowedLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.teardownLocked()
	gen := c.gen
	c.session = &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Frame:     img,
	}
	c.mu.Unlock()

	return c.process(ctx, gen, img)
}

// SubmitFile decodes an image file (PNG, JPEG, GIF, BMP, TIFF or WebP) and
// submits it like SubmitImage. An unreadable file moves the controller to
// StateError.
func (c *Controller) SubmitFile(ctx context.Context, r io.Reader) (*zxscan.Code, error) {
	c.mu.Lock()
	err := c.intakeAllowedLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	img, err := imagefile.Decode(r)
	if err != nil {
		c.mu.Lock()
		if err := c.intakeAllowedLocked(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.teardownLocked()
		gen := c.gen
		c.mu.Unlock()
		return nil, c.fail(gen, err, false, camera.FacingEnvironment)
	}
	return c.SubmitImage(ctx, img)
}

func (c *Controller) intakeAllowedLocked() error {
	if !c.open {
		return zxscan.ErrClosed
	}
	if c.state != StateIdle && c.state != StateLiveView {
		return fmt.Errorf("submit image in state %s: %w", c.state, zxscan.ErrInvalidState)
	}
	return nil
}

// process moves through Captured and Processing, runs the recognizer
// without the lock held and records the result unless the session was torn
// down in the meantime.
func (c *Controller) process(ctx context.Context, gen uint64, img image.Image) (*zxscan.Code, error) {
	c.mu.Lock()
	if gen != c.gen || c.session == nil {
		c.mu.Unlock()
		return nil, zxscan.ErrCanceled
	}
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.session.cancel = cancel
	session := c.session
	captured := c.setStateLocked(StateCaptured)
	processing := c.setStateLocked(StateProcessing)
	c.mu.Unlock()
	c.emit(captured, processing)

	start := time.Now()
	outcome, err := c.rec.Run(dctx, img)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug().Str("session", session.ID.String()).Msg("discarding stale result")
		return nil, zxscan.ErrCanceled
	}
	session.cancel = nil
	if err != nil {
		c.mu.Unlock()
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", zxscan.ErrCanceled, err)
		}
		return nil, c.fail(gen, err, session.live, session.facing)
	}
	code := outcome.Code
	c.code = &code
	c.attempts = outcome.Attempts
	c.logger.Info().
		Str("session", session.ID.String()).
		Str("stage", code.Stage.String()).
		Str("format", code.Format.String()).
		Str("code", code.Text).
		Dur("elapsed", time.Since(start)).
		Msg("barcode recognised")
	snap := c.setStateLocked(StateSuccess)
	c.mu.Unlock()

	c.emit(snap)
	if c.cb.OnHaptic != nil {
		c.cb.OnHaptic()
	}
	return &code, nil
}

// fail records err and moves to StateError, provided generation gen is
// still current. It returns err.
func (c *Controller) fail(gen uint64, err error, live bool, facing camera.Facing) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return zxscan.ErrCanceled
	}
	if c.session != nil && c.session.stream != nil {
		c.session.stream.Close()
		c.session.stream = nil
	}
	c.err = err
	c.retryLive = live
	c.retryFacing = facing
	var exhausted *zxscan.ExhaustedError
	if errors.As(err, &exhausted) {
		c.attempts = exhausted.Attempts
		c.diagnostic = exhausted.Diagnostic
	}
	ev := c.logger.Info().Err(err)
	if c.diagnostic != "" {
		ev = ev.Str("diagnostic", c.diagnostic)
	}
	ev.Msg("scan failed")
	snap := c.setStateLocked(StateError)
	c.mu.Unlock()
	c.emit(snap)
	return err
}

// Confirm accepts the recognised code: OnScan receives it, then the
// scanner closes.
func (c *Controller) Confirm() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return zxscan.ErrClosed
	}
	if c.state != StateSuccess || c.code == nil {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("confirm in state %s: %w", state, zxscan.ErrInvalidState)
	}
	code := *c.code
	c.teardownLocked()
	c.open = false
	snap := c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.logger.Info().Str("code", code.Text).Msg("scan confirmed")
	if c.cb.OnScan != nil {
		c.cb.OnScan(code)
	}
	c.emit(snap)
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
	if c.cam != nil {
		c.cam.Close()
	}
	return nil
}

// Retry leaves StateError. A failed live session re-acquires the camera
// from scratch; any other failure returns to StateIdle.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return zxscan.ErrClosed
	}
	if c.state != StateError {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("retry in state %s: %w", state, zxscan.ErrInvalidState)
	}
	live, facing := c.retryLive, c.retryFacing
	c.teardownLocked()
	snap := c.setStateLocked(StateIdle)
	c.mu.Unlock()
	c.emit(snap)

	if live {
		return c.StartLive(ctx, facing)
	}
	return nil
}

// Reset returns to StateIdle from any state. Camera tracks are stopped
// before Reset returns and any in-flight recognition is abandoned.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.teardownLocked()
	snap := c.setStateLocked(StateIdle)
	c.mu.Unlock()
	c.emit(snap)
}

// Close resets the scanner and marks it closed. OnClose fires once per
// open cycle; further calls do nothing.
func (c *Controller) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	c.open = false
	snap := c.setStateLocked(StateIdle)
	c.mu.Unlock()

	c.emit(snap)
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
	var err error
	if c.cam != nil {
		err = c.cam.Close()
	}
	return err
}

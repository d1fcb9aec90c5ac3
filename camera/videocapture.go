//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// NewSystemDriver returns an OpenCV driver. environment and user are the
// device indexes of the back and front cameras.
func NewSystemDriver(environment, user int) Driver {
	return &VideoCaptureDriver{Environment: environment, User: user}
}

// VideoCaptureDriver acquires cameras through gocv.VideoCapture.
type VideoCaptureDriver struct {
	Environment int
	User        int
}

func (d *VideoCaptureDriver) index(f Facing) int {
	if f == FacingUser {
		return d.User
	}
	return d.Environment
}

// Acquire opens the camera for c.Facing and applies c. A camera that comes
// up below the requested resolution is released with ErrOverconstrained so
// the next rung can be tried.
func (d *VideoCaptureDriver) Acquire(ctx context.Context, c Constraints) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := d.index(c.Facing)
	cam, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w: %v", idx, Classify(err), err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return nil, fmt.Errorf("device %d: %w", idx, ErrDeviceBusy)
	}

	if c.Width > 0 && c.Height > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		cam.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
		if int(cam.Get(gocv.VideoCaptureFrameWidth)) < c.Width {
			cam.Close()
			return nil, fmt.Errorf("device %d at %dx%d: %w", idx, c.Width, c.Height, ErrOverconstrained)
		}
	}
	if c.FrameRate > 0 {
		cam.Set(gocv.VideoCaptureFPS, c.FrameRate)
	}

	t := &videoTrack{cam: cam, mat: gocv.NewMat()}
	// OpenCV reports zoom in driver units; the value at open is taken as 1x.
	t.baseZoom = cam.Get(gocv.VideoCaptureZoom)
	return t, nil
}

type videoTrack struct {
	mu       sync.Mutex
	cam      *gocv.VideoCapture
	mat      gocv.Mat
	baseZoom float64
	stopped  bool
}

// ZoomRange reports zoom support when the device exposes a positive zoom
// property. OpenCV has no zoom range query, so the range is assumed to run
// from the base zoom up to MaxZoomCeiling.
func (t *videoTrack) ZoomRange() (ZoomCapability, bool) {
	if t.baseZoom <= 0 {
		return ZoomCapability{}, false
	}
	return ZoomCapability{Min: 1, Max: MaxZoomCeiling, Step: defaultZoomStep}, true
}

func (t *videoTrack) ApplyZoom(value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrStreamClosed
	}
	want := value * t.baseZoom
	t.cam.Set(gocv.VideoCaptureZoom, want)
	if got := t.cam.Get(gocv.VideoCaptureZoom); math.Abs(got-want) > t.baseZoom*defaultZoomStep {
		return fmt.Errorf("zoom %.2f requested, device reports %.2f", want, got)
	}
	return nil
}

func (t *videoTrack) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil, ErrStreamClosed
	}
	if !t.cam.Read(&t.mat) {
		return nil, errors.New("cannot read frame")
	}
	if t.mat.Empty() {
		return nil, errors.New("frame is empty")
	}
	return t.mat.ToImage()
}

func (t *videoTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	if err := t.mat.Close(); err != nil {
		t.cam.Close()
		return err
	}
	return t.cam.Close()
}

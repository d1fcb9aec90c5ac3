//go:build !gocv

package camera

import "context"

// NewSystemDriver returns the driver for the machine's cameras. This build
// has no camera support; rebuild with the "gocv" tag (OpenCV required):
//
//	go build -tags gocv
//
// Without it every acquisition fails with ErrDeviceNotFound, and hosts fall
// back to still-image intake.
func NewSystemDriver(environment, user int) Driver {
	return unavailableDriver{}
}

type unavailableDriver struct{}

func (unavailableDriver) Acquire(ctx context.Context, c Constraints) (Track, error) {
	return nil, ErrDeviceNotFound
}

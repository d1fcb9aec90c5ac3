package camera

import (
	"errors"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the user or OS refused camera
	// access. It stops the constraint ladder immediately.
	ErrPermissionDenied = errors.New("camera permission denied")

	// ErrDeviceNotFound is returned when no camera satisfies any rung of
	// the constraint ladder.
	ErrDeviceNotFound = errors.New("camera not found")

	// ErrDeviceBusy is returned when the camera is held by another process.
	ErrDeviceBusy = errors.New("camera busy")

	// ErrOverconstrained is returned by drivers when a camera exists but
	// cannot satisfy the requested constraints.
	ErrOverconstrained = errors.New("camera constraints not satisfiable")

	// ErrNoZoom is returned when zoom is requested on a track without zoom
	// support.
	ErrNoZoom = errors.New("zoom not supported")

	// ErrStreamClosed is returned by operations on a closed stream.
	ErrStreamClosed = errors.New("camera stream closed")
)

// Classify maps a driver error onto one of ErrPermissionDenied,
// ErrDeviceBusy or ErrDeviceNotFound. Errors that already wrap one of those
// are returned unchanged; others are matched on their message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrPermissionDenied, ErrDeviceBusy, ErrDeviceNotFound} {
		if errors.Is(err, known) {
			return known
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "permission", "denied", "not permitted", "not allowed"):
		return ErrPermissionDenied
	case containsAny(msg, "busy", "in use", "already open", "resource temporarily unavailable"):
		return ErrDeviceBusy
	default:
		return ErrDeviceNotFound
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

package scanner

import (
	"errors"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/camera"
)

// Message returns the user-facing text for an error that moved the scanner
// to StateError.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, camera.ErrPermissionDenied):
		return "Camera access was denied. Allow camera access and try again."
	case errors.Is(err, camera.ErrDeviceBusy):
		return "The camera is being used by another application."
	case errors.Is(err, camera.ErrDeviceNotFound):
		return "No camera was found. Choose a photo instead."
	case errors.Is(err, zxscan.ErrMalformedImage):
		return "The image could not be read."
	case errors.Is(err, zxscan.ErrNotFound), errors.Is(err, zxscan.ErrRejected):
		return "No barcode was recognised. Try again or enter the code manually."
	case errors.Is(err, zxscan.ErrStageUnavailable):
		return "Barcode recognition is not available."
	default:
		return "Something went wrong while scanning."
	}
}

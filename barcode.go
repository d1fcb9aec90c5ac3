// Package zxscan recognises product barcodes from camera frames and still
// photographs by running a cascade of native, library and OCR decoders.
package zxscan

import (
	"time"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatEAN13
	FormatEAN8
	FormatUPCA
	FormatUPCE
	FormatCode128
	FormatCode39
	FormatITF
	FormatCodabar
	// FormatDigits marks a code reconstructed from OCR text rather than
	// decoded from bars.
	FormatDigits
)

// String returns the name of the barcode format.
func (f Format) String() string {
	switch f {
	case FormatEAN13:
		return "EAN_13"
	case FormatEAN8:
		return "EAN_8"
	case FormatUPCA:
		return "UPC_A"
	case FormatUPCE:
		return "UPC_E"
	case FormatCode128:
		return "CODE_128"
	case FormatCode39:
		return "CODE_39"
	case FormatITF:
		return "ITF"
	case FormatCodabar:
		return "CODABAR"
	case FormatDigits:
		return "DIGITS"
	default:
		return "UNKNOWN"
	}
}

// ProductFormats lists the symbologies the native stage is restricted to.
var ProductFormats = []Format{
	FormatEAN13,
	FormatEAN8,
	FormatUPCA,
	FormatUPCE,
	FormatCode128,
	FormatCode39,
}

// Stage identifies one recognition strategy. Lower stages run first.
type Stage int

const (
	StageNative Stage = iota
	StageLibrary
	StageOCR
)

// String returns the name of the stage.
func (s Stage) String() string {
	switch s {
	case StageNative:
		return "native"
	case StageLibrary:
		return "library"
	case StageOCR:
		return "ocr"
	default:
		return "unknown"
	}
}

// Code is a recognised barcode value as handed to the host.
type Code struct {
	Text   string
	Format Format
	Stage  Stage
}

// DecodeAttempt records the outcome of running one decoder on one frame.
type DecodeAttempt struct {
	Stage   Stage
	RawText string
	Success bool
	Code    Code
	Err     error

	// Diagnostic is the text worth showing the user when the attempt
	// failed. Only the OCR stage fills it in.
	Diagnostic string
	Elapsed    time.Duration
}

// ErrorMessage returns the attempt's error text, or "" on success.
func (a DecodeAttempt) ErrorMessage() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// Succeeded builds a successful attempt for the given stage.
func Succeeded(stage Stage, raw string, code Code) DecodeAttempt {
	code.Stage = stage
	return DecodeAttempt{Stage: stage, RawText: raw, Success: true, Code: code}
}

// Failed builds a failed attempt for the given stage.
func Failed(stage Stage, raw string, err error) DecodeAttempt {
	return DecodeAttempt{Stage: stage, RawText: raw, Err: err}
}

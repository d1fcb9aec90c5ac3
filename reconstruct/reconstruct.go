// Package reconstruct repairs noisy OCR output into an EAN/UPC-like code.
//
// The repair is heuristic. It never validates a check digit, so a single
// misread digit inside an otherwise well-shaped run is accepted as is.
package reconstruct

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/charset"
)

const (
	// MinLength is the shortest digit run accepted as a candidate.
	MinLength = 8

	// MaxLength is the longest candidate ever produced.
	MaxLength = 14

	eanLength = 13

	// misreadLength is the run length produced when a separator glyph is
	// read as '1' at offsets 1 and 8 of a 13-digit code.
	misreadLength = 15
)

// prefixWindow matches a 13-digit window starting with an accepted
// country/application prefix.
var prefixWindow = regexp.MustCompile(`(?:87|78|88|3[0-9]|4[0-9]|50)[0-9]{11}`)

// guardTriple is the run left behind when guard bars are read as digits.
const guardTriple = "111"

// CodeCandidate is a reconstructed, purely numeric product code.
type CodeCandidate struct {
	Digits string
	Length int
}

// RejectedError is returned when no acceptable candidate could be built.
type RejectedError struct {
	Raw    string
	Digits string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("digit run %q too short (need %d digits)", e.Digits, MinLength)
}

// Unwrap lets errors.Is(err, zxscan.ErrRejected) match.
func (e *RejectedError) Unwrap() error { return zxscan.ErrRejected }

// Diagnostic is the text to show the user: the digit run when there is one,
// otherwise the raw OCR text.
func (e *RejectedError) Diagnostic() string {
	if e.Digits != "" {
		return e.Digits
	}
	return strings.TrimSpace(e.Raw)
}

// Reconstruct extracts a code candidate from raw OCR text.
func Reconstruct(raw string) (CodeCandidate, error) {
	run := charset.Digits(raw)
	run = dropSeparatorMisread(run)
	if len(run) > eanLength {
		run = dropGuardTriple(run)
	}

	code := window(run)
	if len(code) < MinLength {
		return CodeCandidate{}, &RejectedError{Raw: raw, Digits: run}
	}
	return CodeCandidate{Digits: code, Length: len(code)}, nil
}

// dropSeparatorMisread removes the two '1' markers at offsets 1 and 8 of a
// 15-digit run.
func dropSeparatorMisread(run string) string {
	if len(run) != misreadLength || run[1] != '1' || run[8] != '1' {
		return run
	}
	return run[:1] + run[2:8] + run[9:]
}

// dropGuardTriple removes a "111" that starts within the first three digits.
func dropGuardTriple(run string) string {
	idx := strings.Index(run, guardTriple)
	if idx < 0 || idx > 2 {
		return run
	}
	return run[:idx] + run[idx+len(guardTriple):]
}

// window picks the 13-digit code out of run.
func window(run string) string {
	if m := prefixWindow.FindString(run); m != "" {
		return m
	}
	if len(run) > eanLength && run[0] == '1' {
		return run[1 : 1+eanLength]
	}
	if len(run) > eanLength {
		return run[:eanLength]
	}
	return run
}

// CheckDigitValid reports whether digits carries a valid GTIN mod-10 check
// digit. It is informational only and never affects Reconstruct.
func CheckDigitValid(digits string) bool {
	switch len(digits) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	if !charset.IsDigits(digits) {
		return false
	}
	sum := 0
	body := digits[:len(digits)-1]
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if (len(body)-1-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(digits[len(digits)-1]-'0')
}

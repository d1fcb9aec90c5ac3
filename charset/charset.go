// Package charset normalises text produced by decoders and OCR engines
// before it is interpreted as a product code.
package charset

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// ToUTF8 converts decoder output to UTF-8. Valid UTF-8 is returned as is;
// anything else is treated as ISO-8859-1, the default character set of
// Code 128 and Code 39 payloads.
func ToUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// FoldWidth maps full-width and half-width forms to their canonical
// narrow equivalents, so "８７" becomes "87".
func FoldWidth(s string) string {
	return width.Fold.String(s)
}

// Digits returns the ASCII digits of s in order, after width folding.
func Digits(s string) string {
	folded := FoldWidth(s)
	var b strings.Builder
	b.Grow(len(folded))
	for i := 0; i < len(folded); i++ {
		if c := folded[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package reconstruct

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/charset"
)

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"clean EAN-13 with 87 prefix", "8712345678901", "8712345678901"},
		{"separator misread at 1 and 8", "510123451678900", "5012345678900"},
		{"noise around code", "EAN: 4006381333931 x", "4006381333931"},
		{"prefix window inside longer run", "99 8712345678901 2", "8712345678901"},
		{"leading 1 fallback", "1" + strings.Repeat("2", 13), strings.Repeat("2", 13)},
		{"guard triple at start", "1110012345678901", "0012345678901"},
		{"EAN-8 length run", "9638 5074", "96385074"},
		{"long run without prefix", strings.Repeat("2", 17), strings.Repeat("2", 13)},
		{"full-width digits", "８７１２３４５６７８９０１", "8712345678901"},
		{"3x prefix", "x3912345678901", "3912345678901"},
		{"4x prefix", "4912345678901", "4912345678901"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Reconstruct(tc.raw)
			if err != nil {
				t.Fatalf("Reconstruct(%q) error: %v", tc.raw, err)
			}
			if got.Digits != tc.want {
				t.Errorf("Reconstruct(%q) = %q, want %q", tc.raw, got.Digits, tc.want)
			}
			if got.Length != len(got.Digits) {
				t.Errorf("Length = %d, want %d", got.Length, len(got.Digits))
			}
		})
	}
}

func TestReconstructMisreadYields13Digits(t *testing.T) {
	code := "5012345678900"
	run := code[:1] + "1" + code[1:7] + "1" + code[7:]
	if len(run) != 15 || run[1] != '1' || run[8] != '1' {
		t.Fatalf("bad fixture %q", run)
	}
	got, err := Reconstruct(run)
	if err != nil {
		t.Fatalf("Reconstruct error: %v", err)
	}
	if got.Length != 13 || got.Digits != code {
		t.Errorf("got %q (%d), want %q", got.Digits, got.Length, code)
	}
}

func TestReconstructRejectsShortRun(t *testing.T) {
	_, err := Reconstruct("AB12")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !errors.Is(err, zxscan.ErrRejected) {
		t.Errorf("error %v does not wrap ErrRejected", err)
	}
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("error %T is not *RejectedError", err)
	}
	if rej.Diagnostic() != "12" {
		t.Errorf("Diagnostic() = %q, want %q", rej.Diagnostic(), "12")
	}
	if rej.Raw != "AB12" {
		t.Errorf("Raw = %q, want %q", rej.Raw, "AB12")
	}
}

func TestReconstructRejectsEmpty(t *testing.T) {
	_, err := Reconstruct("  no code  ")
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected *RejectedError, got %v", err)
	}
	if rej.Diagnostic() != "no code" {
		t.Errorf("Diagnostic() = %q, want raw text fallback", rej.Diagnostic())
	}
}

func TestReconstructCandidateShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabet := "0123456789011111 -AOIl|"
	for i := 0; i < 5000; i++ {
		n := rng.Intn(30)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteByte(alphabet[rng.Intn(len(alphabet))])
		}
		raw := b.String()
		got, err := Reconstruct(raw)
		if err != nil {
			continue
		}
		if got.Length < MinLength || got.Length > MaxLength {
			t.Fatalf("Reconstruct(%q) length %d out of range", raw, got.Length)
		}
		if !charset.IsDigits(got.Digits) {
			t.Fatalf("Reconstruct(%q) = %q, not all digits", raw, got.Digits)
		}
	}
}

func TestCheckDigitValid(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"5901234123457", true},
		{"4006381333931", true},
		{"96385074", true},
		{"012345678905", true},
		{"5901234123458", false},
		{"12345", false},
		{"59012341234a7", false},
	}
	for _, tc := range tests {
		if got := CheckDigitValid(tc.digits); got != tc.want {
			t.Errorf("CheckDigitValid(%q) = %v, want %v", tc.digits, got, tc.want)
		}
	}
}

func BenchmarkReconstruct(b *testing.B) {
	raw := "|| 1 8712345678901 ||\n"
	for i := 0; i < b.N; i++ {
		if _, err := Reconstruct(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// Package native implements the first cascade stage: the platform's own
// barcode reader (zbar's zbarimg), restricted to product symbologies.
//
// Whether the reader is installed is probed once at startup with Probe and
// carried as configuration; the stage is not installed at all when it is
// missing.
package native

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/charset"
)

// DefaultPath is the binary name looked up on PATH.
const DefaultPath = "zbarimg"

// exitNoSymbols is zbarimg's exit status when the image holds no barcode.
const exitNoSymbols = 4

// symbologies maps zbar symbology names to formats. Only these are enabled.
var symbologies = map[string]zxscan.Format{
	"EAN-13":   zxscan.FormatEAN13,
	"EAN-8":    zxscan.FormatEAN8,
	"UPC-A":    zxscan.FormatUPCA,
	"UPC-E":    zxscan.FormatUPCE,
	"CODE-128": zxscan.FormatCode128,
	"CODE-39":  zxscan.FormatCode39,
}

// symbologyFlags disables everything, then enables the product formats.
var symbologyFlags = []string{
	"-Sdisable",
	"-Sean13.enable",
	"-Sean8.enable",
	"-Supca.enable",
	"-Supce.enable",
	"-Scode128.enable",
	"-Scode39.enable",
}

// Probe resolves path (DefaultPath when empty) and reports whether the
// native reader is installed.
func Probe(path string) (string, bool) {
	if path == "" {
		path = DefaultPath
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// Decoder is the native stage of the cascade.
type Decoder struct {
	path   string
	logger zerolog.Logger
}

// NewDecoder creates a native stage running the binary at path, which
// should come from Probe.
func NewDecoder(path string, logger zerolog.Logger) *Decoder {
	return &Decoder{
		path:   path,
		logger: logger.With().Str("component", "native").Logger(),
	}
}

// Stage returns zxscan.StageNative.
func (d *Decoder) Stage() zxscan.Stage { return zxscan.StageNative }

// Decode writes img to a temporary PNG and runs zbarimg over it.
func (d *Decoder) Decode(ctx context.Context, img image.Image) zxscan.DecodeAttempt {
	if !zxscan.ValidImage(img) {
		return zxscan.Failed(zxscan.StageNative, "", zxscan.ErrMalformedImage)
	}

	tmp, err := os.CreateTemp("", "zxscan-native-*.png")
	if err != nil {
		return zxscan.Failed(zxscan.StageNative, "", fmt.Errorf("create temp image: %w", err))
	}
	defer os.Remove(tmp.Name())
	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		return zxscan.Failed(zxscan.StageNative, "", fmt.Errorf("write temp image: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return zxscan.Failed(zxscan.StageNative, "", fmt.Errorf("write temp image: %w", err))
	}

	args := append([]string{"--quiet"}, symbologyFlags...)
	args = append(args, tmp.Name())
	cmd := exec.CommandContext(ctx, d.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exitNoSymbols {
			return zxscan.Failed(zxscan.StageNative, "", zxscan.ErrNotFound)
		}
		if ctx.Err() != nil {
			return zxscan.Failed(zxscan.StageNative, "", ctx.Err())
		}
		return zxscan.Failed(zxscan.StageNative, "", fmt.Errorf("zbarimg failed: %w, output: %s", err, strings.TrimSpace(stderr.String())))
	}

	code, raw, ok := parseOutput(stdout.Bytes())
	if !ok {
		return zxscan.Failed(zxscan.StageNative, strings.TrimSpace(stdout.String()), zxscan.ErrNotFound)
	}
	d.logger.Debug().Str("format", code.Format.String()).Str("text", code.Text).Msg("decoded")
	return zxscan.Succeeded(zxscan.StageNative, raw, code)
}

// parseOutput reads zbarimg's "SYMBOLOGY:data" lines and returns the first
// one in an enabled symbology.
func parseOutput(out []byte) (zxscan.Code, string, bool) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Bytes()
		i := bytes.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		format, ok := symbologies[string(line[:i])]
		if !ok {
			continue
		}
		text := charset.ToUTF8(line[i+1:])
		if text == "" {
			continue
		}
		return zxscan.Code{Text: text, Format: format}, charset.ToUTF8(line), true
	}
	return zxscan.Code{}, "", false
}

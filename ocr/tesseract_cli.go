package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLIEngine runs the tesseract binary in a child process. The image is
// streamed on stdin and text read from stdout, so no temporary files are
// written, and cancelling ctx kills the process.
type CLIEngine struct {
	path     string
	language string
}

// NewCLIEngine creates an engine for the tesseract binary at path (looked up
// on PATH when empty) using language (default "eng").
func NewCLIEngine(path, language string) *CLIEngine {
	if path == "" {
		path = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &CLIEngine{path: path, language: language}
}

// Available reports whether the tesseract binary can be found.
func (e *CLIEngine) Available() bool {
	_, err := exec.LookPath(e.path)
	return err == nil
}

// ExtractText runs tesseract over imageData as a single line of digits.
func (e *CLIEngine) ExtractText(ctx context.Context, imageData []byte) (*Result, error) {
	cmd := exec.CommandContext(ctx, e.path, "stdin", "stdout",
		"-l", e.language,
		"--psm", "7",
		"-c", "tessedit_char_whitelist="+DigitWhitelist,
	)
	cmd.Stdin = bytes.NewReader(imageData)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tesseract failed: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}

	return &Result{
		Text: strings.TrimSpace(stdout.String()),
		// The CLI does not report page confidence on stdout.
		Confidence: 0.90,
	}, nil
}

// ProviderName returns the name of the provider.
func (e *CLIEngine) ProviderName() string {
	return "tesseract-cli"
}

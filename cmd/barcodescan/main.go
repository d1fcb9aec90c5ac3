package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/camera"
	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/internal/logging"
	"github.com/ericlevine/zxscan/internal/pipeline"
	"github.com/ericlevine/zxscan/scanner"
)

func main() {
	cameraIndex := flag.Int("camera", -1, "capture one frame from camera `N` instead of reading files")
	front := flag.Bool("front", false, "use the user-facing camera")
	zoom := flag.Float64("zoom", 0, "zoom level to apply before capturing")
	verbose := flag.Bool("v", false, "log each stage")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: barcodescan [flags] <image-file> [image-file...]\n")
		fmt.Fprintf(os.Stderr, "       barcodescan [flags] -camera N\n\n")
		fmt.Fprintf(os.Stderr, "Recognise product barcodes in images (PNG, JPEG, GIF, BMP, TIFF, WebP)\n")
		fmt.Fprintf(os.Stderr, "or a camera frame, falling back to OCR of the printed digits.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *cameraIndex < 0 && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	logger := logging.New(level, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cascade := pipeline.NewCascade(cfg, logger)

	if *cameraIndex >= 0 {
		cfg.CameraIndex = *cameraIndex
		facing := camera.FacingEnvironment
		if *front {
			facing = camera.FacingUser
		}
		if err := scanCamera(ctx, cfg, logger, cascade, facing, *zoom); err != nil {
			os.Exit(1)
		}
		return
	}

	c := scanner.New(nil, cascade, logger, scanner.Callbacks{})
	defer c.Close()

	exitCode := 0
	for _, path := range flag.Args() {
		code, err := scanFile(ctx, c, path)
		c.Reset()
		if err != nil {
			report(path, err)
			exitCode = 1
			continue
		}
		if flag.NArg() > 1 {
			fmt.Printf("%s: ", path)
		}
		printCode(code)
	}
	os.Exit(exitCode)
}

func scanFile(ctx context.Context, c *scanner.Controller, path string) (*zxscan.Code, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.SubmitFile(ctx, f)
}

func scanCamera(ctx context.Context, cfg *config.Config, logger zerolog.Logger, cascade *zxscan.Cascade, facing camera.Facing, zoom float64) error {
	c := scanner.New(pipeline.NewCamera(cfg, logger), cascade, logger, scanner.Callbacks{})
	defer c.Close()

	if err := c.StartLive(ctx, facing); err != nil {
		report("camera", err)
		return err
	}
	if zoom > 0 {
		if z, err := c.SetZoom(zoom); err != nil {
			logger.Warn().Err(err).Msg("zoom not applied")
		} else {
			logger.Info().Float64("zoom", z).Msg("zoom set")
		}
	}
	code, err := c.Capture(ctx)
	if err != nil {
		report("camera", err)
		return err
	}
	printCode(code)
	return nil
}

func printCode(code *zxscan.Code) {
	fmt.Printf("[%s %s] %s\n", code.Stage, code.Format, code.Text)
}

func report(source string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", source, scanner.Message(err))
	var exhausted *zxscan.ExhaustedError
	if !errors.As(err, &exhausted) {
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		return
	}
	for _, a := range exhausted.Attempts {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", a.Stage, a.ErrorMessage())
	}
	if exhausted.Diagnostic != "" {
		fmt.Fprintf(os.Stderr, "  read %q\n", exhausted.Diagnostic)
	}
}

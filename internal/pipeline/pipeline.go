// Package pipeline assembles the decoder cascade and camera device from a
// Config.
package pipeline

import (
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/camera"
	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/library"
	"github.com/ericlevine/zxscan/native"
	"github.com/ericlevine/zxscan/ocr"
)

// NewCascade installs the stages cfg allows: native when its binary was
// found, library always, and OCR when the selected engine can run.
func NewCascade(cfg *config.Config, logger zerolog.Logger) *zxscan.Cascade {
	var decoders []zxscan.Decoder
	if cfg.NativeAvailable {
		decoders = append(decoders, native.NewDecoder(cfg.ZbarimgPath, logger))
	} else {
		logger.Info().Str("mode", cfg.NativeMode).Msg("native stage disabled")
	}
	decoders = append(decoders, library.NewDecoder(logger))

	if engine := newEngine(cfg, logger); engine != nil {
		decoders = append(decoders, ocr.NewDecoder(engine, logger))
	}
	return zxscan.NewCascade(logger, decoders...)
}

func newEngine(cfg *config.Config, logger zerolog.Logger) ocr.Engine {
	switch cfg.OCREngine {
	case config.OCREngineGosseract:
		engine, err := ocr.NewGosseractEngine(cfg.OCRLanguage)
		if err != nil {
			logger.Warn().Err(err).Msg("ocr stage disabled")
			return nil
		}
		return engine
	default:
		engine := ocr.NewCLIEngine(cfg.TesseractPath, cfg.OCRLanguage)
		if !engine.Available() {
			logger.Warn().Str("path", cfg.TesseractPath).Msg("tesseract not found, ocr stage disabled")
			return nil
		}
		return engine
	}
}

// NewCamera returns a device for the configured camera index.
func NewCamera(cfg *config.Config, logger zerolog.Logger) *camera.Device {
	driver := camera.NewSystemDriver(cfg.CameraIndex, cfg.CameraIndex)
	return camera.NewDevice(driver, logger, cfg.CameraOptions())
}

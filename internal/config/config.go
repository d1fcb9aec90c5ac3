// Package config loads scanner settings from a .env file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ericlevine/zxscan/camera"
	"github.com/ericlevine/zxscan/native"
)

// OCR engine names accepted in SCAN_OCR_ENGINE.
const (
	OCREngineCLI       = "cli"
	OCREngineGosseract = "gosseract"
)

type Config struct {
	LogLevel  string
	LogPretty bool
	Port      string

	OCREngine     string
	TesseractPath string
	OCRLanguage   string

	ZbarimgPath string
	NativeMode  string
	// NativeAvailable is resolved once by Load: the native stage is
	// enabled and its binary was found.
	NativeAvailable bool

	ZoomDebounce time.Duration
	MaxZoom      float64
	CameraIndex  int

	UploadLimit int
}

// Load reads .env if present, then the environment. Unset variables take
// their defaults; malformed ones are an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv without touching .env or probing
// anything but the native decoder binary.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		LogLevel:      getenv("SCAN_LOG_LEVEL"),
		Port:          getenv("SCAN_PORT"),
		OCREngine:     strings.ToLower(getenv("SCAN_OCR_ENGINE")),
		TesseractPath: getenv("SCAN_TESSERACT_PATH"),
		OCRLanguage:   getenv("SCAN_OCR_LANGUAGE"),
		ZbarimgPath:   getenv("SCAN_ZBARIMG_PATH"),
		NativeMode:    strings.ToLower(getenv("SCAN_NATIVE")),
	}

	// Default values
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.OCREngine == "" {
		cfg.OCREngine = OCREngineCLI
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = "eng"
	}
	if cfg.ZbarimgPath == "" {
		cfg.ZbarimgPath = native.DefaultPath
	}
	if cfg.NativeMode == "" {
		cfg.NativeMode = "auto"
	}

	switch cfg.OCREngine {
	case OCREngineCLI, OCREngineGosseract:
	default:
		return nil, fmt.Errorf("SCAN_OCR_ENGINE: unknown engine %q", cfg.OCREngine)
	}
	switch cfg.NativeMode {
	case "auto":
		if path, ok := native.Probe(cfg.ZbarimgPath); ok {
			cfg.ZbarimgPath = path
			cfg.NativeAvailable = true
		}
	case "off":
	default:
		return nil, fmt.Errorf("SCAN_NATIVE: want auto or off, got %q", cfg.NativeMode)
	}

	var err error
	if cfg.LogPretty, err = parseBool(getenv, "SCAN_LOG_PRETTY", false); err != nil {
		return nil, err
	}
	if cfg.ZoomDebounce, err = parseDuration(getenv, "SCAN_ZOOM_DEBOUNCE", camera.DefaultZoomDebounce); err != nil {
		return nil, err
	}
	if cfg.MaxZoom, err = parseFloat(getenv, "SCAN_MAX_ZOOM", camera.MaxZoomCeiling); err != nil {
		return nil, err
	}
	if cfg.MaxZoom <= 0 || cfg.MaxZoom > camera.MaxZoomCeiling {
		return nil, fmt.Errorf("SCAN_MAX_ZOOM: %v outside (0, %v]", cfg.MaxZoom, camera.MaxZoomCeiling)
	}
	if cfg.CameraIndex, err = parseInt(getenv, "SCAN_CAMERA_INDEX", 0); err != nil {
		return nil, err
	}
	if cfg.UploadLimit, err = parseInt(getenv, "SCAN_UPLOAD_LIMIT", 10<<20); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CameraOptions returns the camera.Options the config describes.
func (c *Config) CameraOptions() camera.Options {
	return camera.Options{ZoomDebounce: c.ZoomDebounce, MaxZoom: c.MaxZoom}
}

func parseBool(getenv func(string) string, key string, def bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseFloat(getenv func(string) string, key string, def float64) (float64, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func parseDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

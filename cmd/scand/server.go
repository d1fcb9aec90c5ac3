package main

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/scanner"
)

type scanHandler struct {
	rec    scanner.Recognizer
	stages []string
	logger zerolog.Logger
}

type attemptJSON struct {
	Stage   string `json:"stage"`
	Success bool   `json:"success"`
	Raw     string `json:"raw,omitempty"`
	Error   string `json:"error,omitempty"`
	Millis  int64  `json:"elapsed_ms"`
}

func newApp(cascade *zxscan.Cascade, logger zerolog.Logger, uploadLimit int) *fiber.App {
	h := &scanHandler{
		rec:    cascade,
		stages: stageNames(cascade),
		logger: logger.With().Str("component", "http").Logger(),
	}
	app := fiber.New(fiber.Config{
		BodyLimit:             uploadLimit,
		DisableStartupMessage: true,
	})
	app.Get("/healthz", h.health)
	app.Post("/scan", h.scan)
	return app
}

func stageNames(c *zxscan.Cascade) []string {
	var names []string
	for _, s := range c.Stages() {
		names = append(names, s.String())
	}
	return names
}

func (h *scanHandler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "stages": h.stages})
}

// scan accepts a multipart "image" field and runs it through a fresh
// scanner. 200 carries the code, 422 the failed attempts and what OCR read.
func (h *scanHandler) scan(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "image file is required",
		})
	}
	f, err := file.Open()
	if err != nil {
		h.logger.Error().Err(err).Msg("open upload")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read image file",
		})
	}
	defer f.Close()

	s := scanner.New(nil, h.rec, h.logger, scanner.Callbacks{})
	defer s.Close()

	code, err := s.SubmitFile(c.UserContext(), f)
	snap := s.Snapshot()
	attempts := make([]attemptJSON, 0, len(snap.Attempts))
	for _, a := range snap.Attempts {
		attempts = append(attempts, attemptJSON{
			Stage:   a.Stage.String(),
			Success: a.Success,
			Raw:     a.RawText,
			Error:   a.ErrorMessage(),
			Millis:  a.Elapsed.Milliseconds(),
		})
	}

	if err != nil {
		status := fiber.StatusUnprocessableEntity
		switch {
		case errors.Is(err, zxscan.ErrMalformedImage):
			status = fiber.StatusBadRequest
		case errors.Is(err, zxscan.ErrStageUnavailable):
			status = fiber.StatusServiceUnavailable
		}
		h.logger.Info().Err(err).Int("status", status).Msg("scan failed")
		return c.Status(status).JSON(fiber.Map{
			"error":      scanner.Message(err),
			"diagnostic": snap.Diagnostic,
			"attempts":   attempts,
		})
	}

	return c.JSON(fiber.Map{
		"session":  snap.SessionID.String(),
		"code":     code.Text,
		"format":   code.Format.String(),
		"stage":    code.Stage.String(),
		"attempts": attempts,
	})
}

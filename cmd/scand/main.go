package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/internal/logging"
	"github.com/ericlevine/zxscan/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("error", true)
		boot.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty)

	cascade := pipeline.NewCascade(cfg, logger)
	app := newApp(cascade, logger, cfg.UploadLimit)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info().Msg("shutting down")
		app.Shutdown()
	}()

	logger.Info().Str("port", cfg.Port).Strs("stages", stageNames(cascade)).Msg("scand listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
}

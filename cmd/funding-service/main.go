package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heterodox-labs/funding-service/internal/app"
	"github.com/heterodox-labs/funding-service/internal/config"
	"github.com/heterodox-labs/funding-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.New(logger.ERROR).Fatalw("Failed to load config", "error", err)
	}

	log := logger.New(logger.ParseLevel(cfg.Logging.Level))

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorw("Server stopped with error", "error", err)
		}
	case sig := <-quit:
		log.Infow("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Errorw("Graceful shutdown finished with error", "error", err)
		os.Exit(1)
	}

	log.Infow("Funding service stopped")
}

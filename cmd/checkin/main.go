package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/credential"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
	"github.com/9531lyj/AutoCheckBJMF/internal/worker"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

func main() {
	// Optional .env overlay for CONFIG_PATH and friends.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// A missing config file is fine as long as secure storage can
		// supply the run fields below.
		if !errors.Is(err, apperrors.ErrConfigNotFound) {
			panic(fmt.Sprintf("Failed to load config: %v", err))
		}
		cfg = config.New()
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	liveness := credential.NewValidator(cfg.Platform.BaseURL, cfg.Platform.Timeout)
	store, err := credential.NewStore("", liveness)
	if err != nil {
		log.Warn().Err(err).Msg("Secure storage unavailable, continuing without it")
		store = nil
	}

	if store != nil {
		loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*time.Minute)
		bundle, err := store.Load(loadCtx)
		cancelLoad()
		switch {
		case err == nil:
			credential.ApplyBundle(cfg, bundle)
			log.Info().Int("cookies", len(bundle.Cookies)).Msg("Merged stored credentials into configuration")
		case errors.Is(err, apperrors.ErrStoreNotFound):
			// Nothing saved yet; config.yaml has to carry everything.
		default:
			log.Warn().Err(err).Msg("Failed to read secure storage")
		}
	}

	// Configuration must be valid before any network activity begins.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("class", cfg.Class).Int("accounts", len(cfg.Cookie)).Msg("Starting check-in client")

	checkinWorker := worker.NewCheckinWorker(cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- checkinWorker.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Check-in worker failed")
		}
	case <-quit:
		log.Info().Msg("Shutting down check-in client...")
		cancel()
		checkinWorker.Stop()
		<-done
	}

	log.Info().Msg("Check-in client exited")
}

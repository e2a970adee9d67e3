// Command validate checks every configured cookie against the platform,
// reports dead sessions and rewrites the secure store with the survivors.
// Run it after rotating cookies or when check-ins start failing. The
// -reset flag wipes the secure store instead of rewriting it.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/credential"
	"github.com/9531lyj/AutoCheckBJMF/internal/location"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
)

func main() {
	reset := flag.Bool("reset", false, "delete the secure credential store and exit")
	flag.Parse()

	_ = godotenv.Load()

	if *reset {
		logger.Init("info", "console")
		log := logger.Get()
		store, err := credential.NewStore("", nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Secure storage unavailable")
		}
		if err := store.Clear(); err != nil {
			log.Fatal().Err(err).Msg("Failed to clear credential store")
		}
		log.Info().Msg("Credential store cleared")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Fill in a missing coordinate before validation so a fresh config
	// with only cookies and a class id still passes.
	if cfg.Lat == "" || cfg.Lng == "" {
		resolver := location.NewResolver(location.NewIPProvider())
		coord := resolver.Resolve(ctx)
		cfg.Lat = strconv.FormatFloat(coord.Lat, 'f', 8, 64)
		cfg.Lng = strconv.FormatFloat(coord.Lng, 'f', 8, 64)
		if cfg.Acc == "" {
			cfg.Acc = strconv.FormatFloat(coord.Alt, 'f', -1, 64)
		}
		log.Info().Str("lat", cfg.Lat).Str("lng", cfg.Lng).Msg("Filled missing coordinate from location provider")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	liveness := credential.NewValidator(cfg.Platform.BaseURL, cfg.Platform.Timeout)

	alive := 0
	for i, raw := range cfg.Cookie {
		account, ok := credential.Parse(raw)
		if !ok {
			log.Warn().Int("uid", i+1).Msg("Cookie missing session token")
			continue
		}
		if liveness.Alive(ctx, raw) {
			alive++
			log.Info().Int("uid", i+1).Str("label", account.Label).Msg("Cookie is live")
		} else {
			log.Warn().Int("uid", i+1).Str("label", account.Label).Msg("Cookie is dead")
		}
	}
	log.Info().Int("alive", alive).Int("total", len(cfg.Cookie)).Msg("Validation finished")

	store, err := credential.NewStore("", liveness)
	if err != nil {
		log.Fatal().Err(err).Msg("Secure storage unavailable")
	}

	bundle := &credential.Bundle{
		Cookies:   cfg.Cookie,
		Class:     cfg.Class,
		Lat:       cfg.Lat,
		Lng:       cfg.Lng,
		Acc:       cfg.Acc,
		Schedule:  cfg.ScheduleTime,
		PushToken: cfg.PushPlus,
	}
	dropped, err := store.Save(ctx, bundle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to rewrite credential store")
	}
	log.Info().Int("dropped", dropped).Msg("Credential store updated")
}

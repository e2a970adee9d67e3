// Package worker schedules check-in jobs: either a single immediate run or
// one run per day at a configured wall-clock time.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/checkin"
	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/credential"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
)

type CheckinWorker struct {
	cfg   *config.Config
	orch  *checkin.Orchestrator
	store *credential.Store
	timer *time.Timer
	log   zerolog.Logger
}

// NewCheckinWorker wires the orchestrator to the schedule. store may be
// nil when secure storage is not in use.
func NewCheckinWorker(cfg *config.Config, store *credential.Store) *CheckinWorker {
	return &CheckinWorker{
		cfg:   cfg,
		orch:  checkin.New(cfg),
		store: store,
		log:   logger.Get(),
	}
}

// Start blocks until the context ends. With no schedule configured it runs
// the job exactly once and returns.
func (w *CheckinWorker) Start(ctx context.Context) error {
	if w.cfg.ScheduleTime == "" {
		w.log.Info().Msg("No schedule configured, running once")
		return w.runJob(ctx)
	}

	nextRun := w.nextRunTime(time.Now())
	w.log.Info().Str("schedule", w.cfg.ScheduleTime).Time("next_run", nextRun).Msg("Scheduled daily check-in")

	w.timer = time.NewTimer(time.Until(nextRun))

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Check-in worker context cancelled")
			return ctx.Err()
		case <-w.timer.C:
			if err := w.runJob(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled check-in job failed")
			}

			nextRun = w.nextRunTime(time.Now())
			w.log.Info().Time("next_run", nextRun).Msg("Scheduled next check-in")
			w.timer.Reset(time.Until(nextRun))
		}
	}
}

func (w *CheckinWorker) Stop() {
	w.log.Info().Msg("Stopping check-in worker")
	if w.timer != nil {
		w.timer.Stop()
	}
}

// nextRunTime returns the next daily occurrence of the configured HH:MM.
// The schedule string is validated with the config, so parse errors cannot
// happen here.
func (w *CheckinWorker) nextRunTime(now time.Time) time.Time {
	at, _ := time.Parse("15:04", w.cfg.ScheduleTime)

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (w *CheckinWorker) runJob(ctx context.Context) error {
	startTime := time.Now()

	result, err := w.orch.Run(ctx)
	if err != nil {
		return err
	}

	w.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("success", result.SuccessCount).
		Int("error", len(result.ErrorAccounts)).
		Int("invalid", result.InvalidCount).
		Msg("Check-in job completed")

	// Prune churned-out cookies once per job. Invalid-format entries stay:
	// they are a configuration problem, not an expired session.
	if result.SuccessCount > 0 && len(result.ErrorAccounts) > 0 {
		w.pruneCookies(ctx, result.ErrorAccounts)
	}

	return nil
}

func (w *CheckinWorker) pruneCookies(ctx context.Context, failed []string) {
	failedSet := make(map[string]bool, len(failed))
	for _, raw := range failed {
		failedSet[raw] = true
	}

	kept := make([]string, 0, len(w.cfg.Cookie))
	for _, raw := range w.cfg.Cookie {
		if !failedSet[raw] {
			kept = append(kept, raw)
		}
	}

	w.cfg.Cookie = kept
	if err := w.cfg.Save(); err != nil {
		w.log.Error().Err(err).Msg("Failed to persist pruned cookie list")
		return
	}
	w.log.Info().Int("remaining", len(kept)).Int("pruned", len(failed)).Msg("Pruned failing cookies from config")

	if w.store != nil {
		bundle := &credential.Bundle{
			Cookies:   kept,
			Class:     w.cfg.Class,
			Lat:       w.cfg.Lat,
			Lng:       w.cfg.Lng,
			Acc:       w.cfg.Acc,
			Schedule:  w.cfg.ScheduleTime,
			PushToken: w.cfg.PushPlus,
		}
		if _, err := w.store.Save(ctx, bundle); err != nil {
			w.log.Error().Err(err).Msg("Failed to update credential store")
		}
	}
}

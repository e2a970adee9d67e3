// Package checkin drives the per-account check-in protocol: session
// replay, task discovery, jittered submission and bounded retry of
// failures.
package checkin

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/9531lyj/AutoCheckBJMF/internal/config"
	"github.com/9531lyj/AutoCheckBJMF/internal/credential"
	"github.com/9531lyj/AutoCheckBJMF/internal/jitter"
	"github.com/9531lyj/AutoCheckBJMF/internal/logger"
	"github.com/9531lyj/AutoCheckBJMF/internal/model"
	"github.com/9531lyj/AutoCheckBJMF/internal/notify"
	"github.com/9531lyj/AutoCheckBJMF/internal/platform"
	apperrors "github.com/9531lyj/AutoCheckBJMF/pkg/errors"
)

type Orchestrator struct {
	cfg      *config.Config
	client   *platform.Client
	jit      *jitter.Jitter
	notifier *notify.Notifier
	log      zerolog.Logger
}

func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		client:   platform.NewClient(cfg),
		jit:      jitter.New(),
		notifier: notify.New(cfg.PushPlus),
		log:      logger.Get(),
	}
}

// Run performs a full pass over all configured accounts, then retries the
// failed subset after each configured backoff delay. Accounts still
// failing after the last retry are reported as final failures. Invalid
// credentials are counted once and never retried; re-parsing cannot
// succeed without reconfiguration.
func (o *Orchestrator) Run(ctx context.Context) (model.RunResult, error) {
	coord, err := o.cfg.Coordinate()
	if err != nil {
		return model.RunResult{}, err
	}

	cookies := o.cfg.Cookie
	o.log.Info().Str("class", o.cfg.Class).Int("accounts", len(cookies)).Msg("Starting check-in job")

	result := o.RunCycle(ctx, coord, cookies)
	invalid := result.InvalidCount
	failing := result.ErrorAccounts

	for attempt, delay := range o.cfg.Platform.RetryDelays {
		if len(failing) == 0 {
			break
		}
		o.log.Warn().
			Int("failing", len(failing)).
			Dur("backoff", delay).
			Msg("Check-in failures detected, scheduling retry")

		if !sleepCtx(ctx, delay) {
			break
		}

		o.log.Info().Int("attempt", attempt+1).Int("accounts", len(failing)).Msg("Retrying failed accounts")
		sub := o.RunCycle(ctx, coord, failing)
		failing = sub.ErrorAccounts
	}

	success := len(cookies) - invalid - len(failing)
	o.log.Info().
		Int("total", len(cookies)).
		Int("success", success).
		Int("error", len(failing)).
		Int("invalid", invalid).
		Msg("Check-in job finished")

	if len(failing) > 0 {
		o.log.Error().Int("count", len(failing)).Msg("Accounts still failing after retry cap, check whether their cookies expired")
	}

	return model.RunResult{
		Total:         len(cookies),
		SuccessCount:  success,
		InvalidCount:  invalid,
		ErrorAccounts: failing,
	}, nil
}

// RunCycle visits every account strictly in list order and attempts to
// clear all of its pending tasks. Accounts are processed sequentially with
// a fixed delay in between; parallel sessions hammering the same course
// endpoint would trip the platform's abuse detection.
func (o *Orchestrator) RunCycle(ctx context.Context, coord model.Coordinate, rawCookies []string) model.CycleResult {
	var result model.CycleResult

	for i, raw := range rawCookies {
		if i > 0 && !sleepCtx(ctx, o.cfg.Platform.AccountDelay) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		account, ok := credential.Parse(raw)
		if !ok {
			result.InvalidCount++
			o.log.Warn().Int("uid", i+1).Msg("Cookie missing session token, skipping account")
			continue
		}

		log := o.log.With().Int("uid", i+1).Str("label", account.Label).Logger()
		log.Info().Msg("Starting check-in for account")

		if !o.processAccount(ctx, log, account, coord) {
			result.ErrorAccounts = append(result.ErrorAccounts, raw)
		}
	}

	return result
}

// processAccount runs the listing-discover-submit sequence for a single
// account. It returns false when the account must be classified as an
// error; any failure is absorbed here and never aborts the cycle.
func (o *Orchestrator) processAccount(ctx context.Context, log zerolog.Logger, account model.Account, coord model.Coordinate) bool {
	tasks, err := o.client.FetchTasks(ctx, account)
	if err != nil {
		if apperrors.IsRetryable(err) {
			log.Error().Err(err).Msg("Failed to fetch check-in listing")
		} else {
			log.Error().Err(err).Msg("Platform rejected the session, replace this account's cookie if the retries fail too")
		}
		return false
	}

	if len(tasks) == 0 {
		log.Info().Msg("No pending check-in tasks")
		return true
	}
	log.Info().Int("tasks", len(tasks)).Msg("Found pending check-in tasks")

	for _, task := range tasks {
		// Re-jitter on every submission: consecutive readings from a
		// real device never repeat exactly.
		lat := o.jit.Perturb(coord.Lat)
		lng := o.jit.Perturb(coord.Lng)

		outcome, err := o.client.Submit(ctx, account, task, lat, lng)
		if err != nil {
			log.Error().Err(err).Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("Check-in submission failed")
			return false
		}

		if outcome == "" {
			log.Warn().Str("task_id", task.ID).Msg("Submission accepted but no result marker found")
			continue
		}

		log.Info().Str("task_id", task.ID).Str("kind", string(task.Kind)).Str("outcome", outcome).Msg("Check-in result")

		if outcome == platform.SuccessOutcome {
			o.notifier.Send(ctx, outcome)
		}
	}

	return true
}

// sleepCtx waits for d and reports false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	portuc "github.com/aaftab343/dailyfruit-backend/internal/domain/ports/usecase"
	red "github.com/aaftab343/dailyfruit-backend/internal/infra/redis"
)

// SweepLockKey serialises sweeps across replicas.
const SweepLockKey = "lock:sweep"

// ExpiryWorker periodically expires finished subscriptions and resumes paused
// ones whose pause window has ended. Only one replica sweeps per tick.
type ExpiryWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	sweeper  portuc.Sweeper
	locker   red.Locker
	log      *zerolog.Logger
}

// SweepResult is what one pass changed.
type SweepResult struct {
	Expired int
	Resumed int
	Skipped bool // another replica held the lock
}

func NewExpiryWorker(interval, lockTTL time.Duration, sweeper portuc.Sweeper, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &ExpiryWorker{
		interval: interval,
		lockTTL:  lockTTL,
		sweeper:  sweeper,
		locker:   locker,
		log:      &exprLog,
	}
}

// Run sweeps once on startup, then on every tick until ctx is done.
func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
		return
	}
	if res.Skipped {
		w.log.Debug().Msg("sweep skipped, lock held elsewhere")
		return
	}
	if res.Expired > 0 || res.Resumed > 0 {
		w.log.Info().Int("expired", res.Expired).Int("resumed", res.Resumed).Msg("subscriptions swept")
	}
}

// RunOnce performs a single locked sweep. Both steps are idempotent, so a
// failed expire still lets the resume step run.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	token, err := w.locker.TryLock(ctx, SweepLockKey, w.lockTTL)
	if errors.Is(err, red.ErrLockHeld) {
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return res, err
	}
	defer func() {
		if err := w.locker.Unlock(context.WithoutCancel(ctx), SweepLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("release sweep lock")
		}
	}()

	var errs []error
	if res.Expired, err = w.sweeper.ExpireDue(ctx); err != nil {
		errs = append(errs, err)
	}
	if res.Resumed, err = w.sweeper.ResumeDue(ctx); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

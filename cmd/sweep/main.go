// File: cmd/sweep/main.go
//
// sweep runs one expiry pass and exits, for deployments that schedule it from
// an external cron instead of the in-process worker (cmd/app -no-worker).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aaftab343/dailyfruit-backend/internal/config"
	pg "github.com/aaftab343/dailyfruit-backend/internal/infra/db/postgres"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	red "github.com/aaftab343/dailyfruit-backend/internal/infra/redis"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/sched"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "upper bound for the whole sweep")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, false)

	if err := run(cfg, *timeout, logger); err != nil {
		logger.Error().Err(err).Msg("sweep failed")
		os.Exit(1)
	}
}

// run owns every resource so its deferred closes happen before main exits.
func run(cfg *config.Config, timeout time.Duration, logger *zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	tm := pg.NewTxManager(pool)
	subRepo := pg.NewPostgresSubscriptionRepo(pool)
	deliveryRepo := pg.NewPostgresDeliveryRepo(pool)
	cal := usecase.Calendar{
		Location:           cfg.Location(),
		LookaheadDays:      cfg.Delivery.LookaheadDays,
		UpcomingWindowDays: cfg.Delivery.UpcomingWindowDays,
	}
	deliveryUC := usecase.NewDeliveryUseCase(deliveryRepo, subRepo, tm, cal, logger)
	subUC := usecase.NewSubscriptionUseCase(
		subRepo, pg.NewPostgresPlanRepo(pool), pg.NewPostgresUserRepo(pool), deliveryRepo, deliveryUC, tm, cal, logger,
	)

	w := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Scheduler.LockTTL, subUC, red.NewLocker(redisClient, 1), logger)
	res, err := w.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sweep (expired=%d resumed=%d): %w", res.Expired, res.Resumed, err)
	}
	if res.Skipped {
		logger.Info().Msg("another sweeper holds the lock; nothing to do")
		return nil
	}
	logger.Info().Int("expired", res.Expired).Int("resumed", res.Resumed).Msg("sweep complete")
	return nil
}

// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aaftab343/dailyfruit-backend/internal/config"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/repository"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/adapters/email"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/adapters/notify"
	payAdapters "github.com/aaftab343/dailyfruit-backend/internal/infra/adapters/payment"
	tele "github.com/aaftab343/dailyfruit-backend/internal/infra/adapters/telegram"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/api"
	pg "github.com/aaftab343/dailyfruit-backend/internal/infra/db/postgres"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/i18n"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/logging"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/metrics"
	red "github.com/aaftab343/dailyfruit-backend/internal/infra/redis"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/sched"
	"github.com/aaftab343/dailyfruit-backend/internal/infra/worker"
	"github.com/aaftab343/dailyfruit-backend/internal/usecase"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

const statsInterval = 30 * time.Second

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, dev payment gateway, log notifiers")
	noWorker := flag.Bool("no-worker", false, "do not run the in-process expiry sweeper")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	if err := run(cfg, !*noWorker, logger); err != nil {
		logger.Fatal().Err(err).Msg("app stopped")
	}
	logger.Info().Msg("app stopped")
}

func run(cfg *config.Config, withWorker bool, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	subRepo := pg.NewPostgresSubscriptionRepo(pool)
	deliveryRepo := pg.NewPostgresDeliveryRepo(pool)
	payRepo := pg.NewPostgresPaymentRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)

	// ---- Notifications ----
	notifyPool := worker.NewPool(cfg.Workers.Notifications, logger)
	notifyPool.Start(context.Background())
	defer notifyPool.Stop()
	customer, ops := buildNotifiers(cfg, logger)

	// ---- Payment gateway ----
	gateway, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	// ---- Use cases ----
	cal := usecase.Calendar{
		Location:           cfg.Location(),
		LookaheadDays:      cfg.Delivery.LookaheadDays,
		UpcomingWindowDays: cfg.Delivery.UpcomingWindowDays,
	}
	userUC := usecase.NewUserUseCase(userRepo, tm, logger)
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	couponUC := usecase.NewCouponUseCase(couponRepo, cal, logger)
	deliveryUC := usecase.NewDeliveryUseCase(deliveryRepo, subRepo, tm, cal, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, userRepo, deliveryRepo, deliveryUC, tm, cal, logger)
	msgs, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Notify.Language)
	if err != nil {
		return fmt.Errorf("notification messages: %w", err)
	}
	notifUC := usecase.NewNotificationUseCase(customer, ops, msgs, notifyPool, logger)
	paymentUC := usecase.NewPaymentUseCase(
		payRepo, planRepo, userRepo, couponUC, subUC, notifUC, gateway, tm, cal,
		usecase.PaymentOptions{Currency: cfg.Payment.Currency, VerifyLease: cfg.Payment.VerifyLease},
		logger,
	)

	// ---- HTTP API ----
	srv := api.NewServer(
		planUC, couponUC, paymentUC, subUC, deliveryUC, userUC,
		api.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		red.NewRateLimiter(redisClient),
		api.Options{
			RequestTimeout:  cfg.HTTP.RequestTimeout,
			RateLimit:       cfg.RateLimit.Requests,
			RateLimitWindow: cfg.RateLimit.Window,
			Checks: map[string]api.HealthCheck{
				"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
				"redis":    redisClient.Ping,
			},
		},
		logger,
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTP.Addr).Str("version", version).Msg("http api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
		defer cancel()
		logger.Info().Msg("shutdown requested")
		return httpServer.Shutdown(shutdownCtx)
	})
	if withWorker {
		expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Scheduler.LockTTL, subUC, red.NewLocker(redisClient, 1), logger)
		g.Go(func() error {
			if err := expiry.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		reportStats(gctx, pool, subRepo, logger)
		return nil
	})

	return g.Wait()
}

// buildGateway falls back to the local dev gateway only in dev mode.
func buildGateway(cfg *config.Config) (adapter.PaymentGateway, error) {
	rz := cfg.Payment.Razorpay
	if rz.KeyID == "" || rz.KeySecret == "" {
		if !cfg.Runtime.Dev {
			return nil, errors.New("payment.razorpay key_id and key_secret are required outside dev mode")
		}
		return payAdapters.NewDevGateway(rz.KeySecret), nil
	}
	return payAdapters.NewRazorpayGateway(rz.KeyID, rz.KeySecret, rz.WebhookSecret, rz.BaseURL, rz.Timeout), nil
}

// buildNotifiers returns the customer (email) and ops (telegram) channels.
// Unconfigured channels, and every channel in dev mode, only log.
func buildNotifiers(cfg *config.Config, logger *zerolog.Logger) (customer, ops adapter.Notifier) {
	customer = notify.NewLogNotifier("email", cfg.Runtime.Dev, logger)
	if !cfg.Runtime.Dev && cfg.Mail.Username != "" && cfg.Mail.Password != "" {
		customer = email.NewSMTPNotifier(cfg.Mail)
	}

	opsLog := notify.NewLogNotifier("ops", cfg.Runtime.Dev, logger)
	ops = opsLog
	if !cfg.Runtime.Dev && cfg.Telegram.Token != "" && cfg.Telegram.AdminChatID != 0 {
		bot, err := tele.NewOpsNotifier(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram ops channel disabled")
		} else {
			ops = notify.NewMulti(bot, opsLog)
		}
	}
	return customer, ops
}

// reportStats refreshes the pool and subscription gauges until ctx ends.
func reportStats(ctx context.Context, pool *pgxpool.Pool, subs repository.SubscriptionRepository, logger *zerolog.Logger) {
	t := time.NewTicker(statsInterval)
	defer t.Stop()
	for {
		st := pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		if counts, err := subs.CountByStatus(ctx, repository.NoTX); err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("subscription gauge refresh failed")
			}
		} else {
			metrics.SetSubscriptionsTotal(counts)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

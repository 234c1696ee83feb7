package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mira-stack/backend-quotes/internal/app"
	"github.com/mira-stack/backend-quotes/internal/catalog"
	"github.com/mira-stack/backend-quotes/internal/config"
	"github.com/mira-stack/backend-quotes/internal/lock"
	"github.com/mira-stack/backend-quotes/internal/obs"
	"github.com/mira-stack/backend-quotes/internal/quote"
	"github.com/mira-stack/backend-quotes/internal/resilience"
	"github.com/mira-stack/backend-quotes/internal/tasks"
)

const sweepPageSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(initCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	var provider catalog.Provider
	switch cfg.CatalogProvider {
	case "http":
		provider = &catalog.HTTPClient{
			BaseURL: cfg.CatalogBaseURL,
			APIKey:  cfg.CatalogAPIKey,
			Timeout: cfg.CatalogTimeout,
			Breaker: resilience.NewBreaker(10, 0.5, 30*time.Second).
				WithTarget("catalog").
				WithLogger(logger),
		}
	default:
		provider = catalog.NewMockProvider()
	}
	cached := &catalog.Cache{Provider: provider, Client: redisClient, TTL: cfg.CatalogCacheTTL}

	store := quote.NewStore(pool)
	scanner := &tasks.DriftScanner{
		Repo:   store,
		Ctrl:   quote.NewController(&quote.Resolver{Provider: cached}),
		Logger: logger,
	}

	srv, err := app.NewTaskServer(cfg.RedisURL, cfg.DriftScanConcurrency)
	if err != nil {
		logger.Fatal().Err(err).Msg("init task server")
	}
	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeDriftScan, scanner)

	taskClient, err := app.NewTaskClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init task client")
	}
	defer func() { _ = taskClient.Close() }()

	go runSweep(ctx, sweeper{
		store:    store,
		enqueuer: &tasks.Enqueuer{Client: taskClient},
		locker:   lock.Locker{R: redisClient, RetryBackoff: 5 * time.Second},
		interval: cfg.DriftSweepInterval,
		logger:   logger,
	})

	logger.Info().Int("concurrency", cfg.DriftScanConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
}

type sweeper struct {
	store    *quote.Store
	enqueuer *tasks.Enqueuer
	locker   lock.Locker
	interval time.Duration
	logger   zerolog.Logger
}

// runSweep periodically enqueues a drift scan for every stored quote. The
// Redis lock keeps a fleet of workers from sweeping in parallel.
func runSweep(ctx context.Context, s sweeper) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		attempt, cancel := context.WithTimeout(ctx, s.interval/2)
		err := s.locker.WithLock(attempt, "quotes:drift_sweep", s.interval/2, s.sweep)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded):
			s.logger.Debug().Msg("drift sweep held by another worker")
		case errors.Is(err, context.Canceled):
			return
		default:
			s.logger.Error().Err(err).Msg("drift sweep failed")
		}
	}
}

func (s sweeper) sweep(ctx context.Context) error {
	enqueued := 0
	for offset := 0; ; offset += sweepPageSize {
		ids, err := s.store.ListIDs(ctx, sweepPageSize, offset)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := s.enqueuer.EnqueueDriftScan(ctx, id); err != nil {
				return err
			}
			enqueued++
		}
		if len(ids) < sweepPageSize {
			break
		}
	}
	s.logger.Info().Int("quotes", enqueued).Msg("drift sweep enqueued")
	return nil
}

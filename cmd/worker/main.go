package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/internal/app"
	"github.com/briangreenhill/tripparse/internal/config"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/internal/jobs"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	logger = logger.Level(cfg.Level())

	switch {
	case !cfg.HasJobs():
		logger.Fatal().Msg("REDIS_ADDR and DATABASE_URL are required")
	case !cfg.HasAnthropic():
		logger.Fatal().Msg("ANTHROPIC_API_KEY is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	store, err := app.NewStore(cfg, logger)
	if err != nil {
		return err
	}
	p, err := app.NewParser(cfg, store, nil, logger)
	if err != nil {
		return err
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			jobs.QueueParse: 10,
			"default":       5,
		},
		Logger:   asynqLogger{logger.With().Str("component", "asynq").Logger()},
		LogLevel: asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	jobs.NewProcessor(p, db.New(pool), logger).Register(mux)

	if err := srv.Start(mux); err != nil {
		return err
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker running")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Cache.Enabled {
		janitor := cache.NewJanitor(store, cfg.Cache.CleanupInterval, logger)
		g.Go(func() error { return janitor.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		srv.Shutdown()
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// asynqLogger routes asynq's logs through zerolog.
type asynqLogger struct{ log zerolog.Logger }

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }

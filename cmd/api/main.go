// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/internal/app"
	"github.com/briangreenhill/tripparse/internal/config"
	"github.com/briangreenhill/tripparse/internal/db"
	"github.com/briangreenhill/tripparse/internal/http/routes"
	"github.com/briangreenhill/tripparse/internal/jobs"
	"github.com/briangreenhill/tripparse/internal/metrics"
)

var version = "1.0.0"

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}
	logger = logger.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := app.NewStore(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, store)

	opts := routes.ServerOptions{
		Cache:          store,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AdminToken:     cfg.AdminToken,
		CORSOrigins:    cfg.API.CORSOrigins,
		RequestTimeout: cfg.API.RequestTimeout,
		Version:        version,
		Logger:         logger,
	}

	if cfg.HasAnthropic() {
		p, err := app.NewParser(cfg, store, m, logger)
		if err != nil {
			return err
		}
		opts.Parser = p
	} else {
		logger.Warn().Msg("ANTHROPIC_API_KEY not set, parse endpoints will fail")
	}

	if cfg.HasJobs() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("closing asynq client")
			}
		}()
		opts.Jobs = jobs.NewService(db.New(pool), client, logger)
	}

	s := routes.New(opts)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Cache.Enabled {
		janitor := cache.NewJanitor(store, cfg.Cache.CleanupInterval, logger)
		g.Go(func() error { return janitor.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting api")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/webhook-scheduler/internal/api"
	"github.com/edvin/webhook-scheduler/internal/config"
	"github.com/edvin/webhook-scheduler/internal/core"
	"github.com/edvin/webhook-scheduler/internal/db"
	"github.com/edvin/webhook-scheduler/internal/dispatch"
	"github.com/edvin/webhook-scheduler/internal/logging"
	"github.com/edvin/webhook-scheduler/internal/metrics"
	"github.com/edvin/webhook-scheduler/internal/scheduler"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	services := core.NewServices(pool)
	dispatcher := dispatch.NewDispatcher(cfg.DispatchTimeout)
	sched := scheduler.New(services.Job, services.JobExecution, dispatcher, scheduler.Config{
		PollInterval:       cfg.PollInterval,
		LeaseDuration:      cfg.LeaseDuration,
		MaxInFlight:        cfg.MaxInFlight,
		ExecutionRetention: cfg.ExecutionRetention,
		PurgeInterval:      cfg.PurgeInterval,
	}, logger)

	schedulerDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedulerDone)
	}()

	srv := api.NewServer(logger, pool)
	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting scheduler API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	// Stop polling, then wait for in-flight dispatches to record and release.
	cancel()
	select {
	case <-schedulerDone:
	case <-time.After(cfg.DispatchTimeout + 5*time.Second):
		logger.Warn().Msg("scheduler drain timed out, leases will expire naturally")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/territorydesk/internal/access"
	"github.com/lalith-99/territorydesk/internal/api"
	"github.com/lalith-99/territorydesk/internal/app"
	"github.com/lalith-99/territorydesk/internal/config"
	"github.com/lalith-99/territorydesk/internal/observ"
	"github.com/lalith-99/territorydesk/internal/reconcile"
	"github.com/lalith-99/territorydesk/internal/scheduler"
	"github.com/lalith-99/territorydesk/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// ctx is cancelled on SIGINT/SIGTERM and drives the shutdown below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Open the store and the job lock
	// ---------------------------------------------------------------
	deps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// ---------------------------------------------------------------
	// 4. Build the core: command handlers, resolver, job runner.
	//
	// Only this layer reads the wall clock; everything below takes
	// "now" from the function it is handed.
	// ---------------------------------------------------------------
	svc := service.New(deps.Store, logger)
	resolver := access.NewResolver(deps.Store, logger)
	runner := reconcile.NewRunner(
		reconcile.Jobs(deps.Store, reconcile.DefaultGraceDays),
		logger,
		reconcile.WithLocker(deps.Locker),
		reconcile.WithMetrics(observ.NewPrometheusJobMetrics(nil, "")),
		reconcile.WithTimeout(cfg.JobTimeout),
	)

	// ---------------------------------------------------------------
	// 5. Optional in-process scheduler
	// ---------------------------------------------------------------
	if cfg.SchedulerEnabled {
		sched := scheduler.New(runner, logger)
		for job, spec := range map[string]string{
			reconcile.SyncExpirationJob: cfg.ScheduleSyncExpiration,
			reconcile.AutoReturnJob:     cfg.ScheduleAutoReturn,
			reconcile.SyncSnapshotsJob:  cfg.ScheduleSyncSnapshots,
		} {
			if err := sched.Add(spec, job); err != nil {
				return err
			}
		}
		sched.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				logger.Warn("scheduler did not stop cleanly", zap.Error(err))
			}
		}()
	}

	// ---------------------------------------------------------------
	// 6. HTTP server
	// ---------------------------------------------------------------
	checks := make(map[string]api.HealthCheck, len(deps.Checks))
	for name, check := range deps.Checks {
		checks[name] = check
	}
	router := api.NewRouter(api.Deps{
		Service:      svc,
		Resolver:     resolver,
		Runner:       runner,
		Logger:       logger,
		JWTSecret:    cfg.JWTSecret,
		PublicPrefix: cfg.PublicPathPrefix,
		HealthChecks: checks,
		Metrics:      promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting territorydesk",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("scheduler", cfg.SchedulerEnabled),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

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

	"golang.org/x/sync/errgroup"

	"github.com/edvin/testpilot/internal/api"
	"github.com/edvin/testpilot/internal/browser"
	"github.com/edvin/testpilot/internal/config"
	"github.com/edvin/testpilot/internal/core"
	"github.com/edvin/testpilot/internal/db"
	"github.com/edvin/testpilot/internal/healing"
	"github.com/edvin/testpilot/internal/logging"
	"github.com/edvin/testpilot/internal/recorder"
	"github.com/edvin/testpilot/internal/runner"
	"github.com/edvin/testpilot/internal/scheduler"
	"github.com/edvin/testpilot/internal/screenshot"
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

	if err := cfg.Validate("testpilot-api"); err != nil {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	services := core.NewServices(pool)

	browserSets, err := config.LoadBrowserSets(cfg.BrowserSetsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load browser sets")
	}

	driver := browser.NewWebDriver(cfg.WebDriverURL)
	sessions := browser.NewPool(driver, logger, browser.PoolOptions{
		MaxSessions:   cfg.BrowserMaxSessions,
		IdleTimeout:   cfg.SessionIdleTimeout,
		SweepInterval: cfg.SessionSweepInterval,
	})

	var healer healing.Resolver = healing.NoopResolver{}
	if cfg.HealingAPIURL != "" {
		healer = healing.NewLLMResolver(cfg.HealingAPIURL, cfg.HealingAPIKey, cfg.HealingModel)
		logger.Info().Str("model", cfg.HealingModel).Msg("locator self-healing enabled")
	}

	var shots screenshot.Store
	if cfg.ScreenshotBucket != "" {
		shots = screenshot.NewS3Store(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.ScreenshotBucket)
	} else {
		shots = screenshot.NewLocalStore(cfg.ScreenshotDir)
	}

	locators := &runner.StoreLocators{Tests: services.Test, Elements: services.Element}
	steps := runner.NewStepExecutor(healer, locators, shots, logger)
	ui := runner.NewTestRunner(steps, logger)
	apiRunner := runner.NewAPIRunner(logger)
	notifier := runner.NewLogNotifier(logger)
	orchestrator := runner.NewOrchestrator(services.Plan, services.Execution, sessions, ui, apiRunner, notifier, logger)

	registry := scheduler.NewRegistry(services.Schedule, orchestrator, browserSets, logger)
	registry.Start()
	defer registry.Stop()
	if err := registry.LoadAll(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load schedules")
	}

	recordings := recorder.NewController(sessions, logger)
	adhoc := runner.NewAdhocRunner(sessions, healer, shots, logger)

	srv := api.NewServer(logger, pool, services, orchestrator, registry, recordings, adhoc)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Idle sweep runs until shutdown, then closes remaining sessions.
	g.Go(func() error {
		return sessions.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("shutdown complete")
}

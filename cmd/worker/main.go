package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/internal/storage"
	"github.com/testforge/pomsuite/internal/suite"
	"github.com/testforge/pomsuite/internal/temporal"
	"github.com/testforge/pomsuite/internal/workflows"
)

func main() {
	godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	logger.Info("Starting suite worker",
		zap.String("environment", string(cfg.Env)),
		zap.String("temporal_address", cfg.Temporal.Address()),
		zap.String("namespace", cfg.Temporal.Namespace),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Addr, metrics, logger)
	}

	opts := []suite.Option{suite.WithLogger(logger), suite.WithMetrics(metrics)}
	if cfg.Storage.Enabled {
		uploader, err := storage.NewMinIOClient(cfg.Storage, logger)
		if err != nil {
			logger.Fatal("Failed to create screenshot storage", zap.Error(err))
		}
		if err := uploader.EnsureBucket(context.Background()); err != nil {
			logger.Fatal("Failed to prepare screenshot bucket", zap.Error(err))
		}
		opts = append(opts, suite.WithUploader(uploader))
	}

	launcher := browser.NewPlaywrightLauncher(browser.PlaywrightConfig{
		Headless:        cfg.Browser.Headless,
		SlowMo:          cfg.Browser.SlowMo,
		WindowWidth:     cfg.Browser.WindowWidth,
		WindowHeight:    cfg.Browser.WindowHeight,
		PageLoadTimeout: cfg.Timeouts.PageLoad,
		ImplicitWait:    cfg.Timeouts.Implicit,
		InstallBrowsers: cfg.Browser.Install,
	}, logger)

	harness, err := suite.NewHarness(cfg, launcher, opts...)
	if err != nil {
		logger.Fatal("Failed to create suite harness", zap.Error(err))
	}
	defer harness.Close()

	// Create Temporal client
	c, err := temporal.NewClient(cfg.Temporal, logger, metrics)
	if err != nil {
		logger.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	logger.Info("Connected to Temporal server")

	// One browser session per worker
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 1,
	})

	workflows.NewActivities(harness, logger, metrics).Register(w)

	logger.Info("Registered workflows and activities",
		zap.String("workflow", workflows.SuiteWorkflowName),
		zap.String("activity", workflows.RunScenarioActivityName),
		zap.Bool("healing_enabled", harness.HealingEnabled()),
	)

	// Start worker in goroutine
	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	logger.Info("Worker started successfully",
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		if err != nil {
			logger.Error("Worker error", zap.Error(err))
		}

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		w.Stop()
		logger.Info("Worker stopped gracefully")
	}
}

func serveMetrics(addr string, metrics *observability.Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("Metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}

func initLogger(env, level string) *zap.Logger {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

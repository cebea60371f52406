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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/fixture"
	"github.com/testforge/pomsuite/internal/observability"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Fixture.Addr, "Listen address")
	cors := flag.Bool("cors", false, "Allow cross-origin requests")
	flag.Parse()

	logger := initLogger(string(cfg.Env), cfg.GetLogLevel())
	defer logger.Sync()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace+"_fixture", prometheus.DefaultRegisterer)
	}

	app := fixture.New(cfg.Fixture,
		fixture.WithLogger(logger),
		fixture.WithMetrics(metrics),
		fixture.WithCORS(*cors),
	)

	mux := http.NewServeMux()
	mux.Handle("/", app.Handler())
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Fixture app listening",
			zap.String("addr", *addr),
			zap.String("login_url", fmt.Sprintf("http://%s/login", *addr)),
			zap.String("products_url", fmt.Sprintf("http://%s/products", *addr)),
		)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
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

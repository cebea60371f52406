package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
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

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	filter := flag.String("run", "", "Comma-separated scenario names or groups (default: all)")
	list := flag.Bool("list", false, "List scenarios and exit")
	remote := flag.Bool("remote", false, "Run on a Temporal worker instead of locally")
	jsonOut := flag.String("json", "", "Write results as JSON to this file")
	verbose := flag.Bool("verbose", false, "Log to stderr while running")
	flag.Parse()

	if *list {
		printCatalog()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		red.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(string(cfg.Env), cfg.GetLogLevel(), *verbose)
	defer logger.Sync()

	filters := splitFilters(*filter)
	scenarios, err := suite.Select(filters...)
	if err != nil {
		red.Println(err)
		os.Exit(2)
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
		go serveMetrics(cfg.Metrics.Addr, metrics, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summary suite.Summary
	var results []suite.Result
	if *remote {
		results, summary, err = runRemote(ctx, cfg, filters, logger, metrics)
	} else {
		results, summary, err = runLocal(ctx, cfg, scenarios, logger, metrics)
	}
	if err != nil {
		red.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	printResults(results, summary)

	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, summary, results); err != nil {
			yellow.Printf("Could not write %s: %v\n", *jsonOut, err)
		}
	}

	if !summary.OK() {
		os.Exit(1)
	}
}

func runLocal(ctx context.Context, cfg *config.Config, scenarios []suite.Scenario, logger *zap.Logger, metrics *observability.Metrics) ([]suite.Result, suite.Summary, error) {
	opts := []suite.Option{suite.WithLogger(logger), suite.WithMetrics(metrics)}
	if cfg.Storage.Enabled {
		uploader, err := storage.NewMinIOClient(cfg.Storage, logger)
		if err != nil {
			return nil, suite.Summary{}, err
		}
		if err := uploader.EnsureBucket(ctx); err != nil {
			return nil, suite.Summary{}, err
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
		return nil, suite.Summary{}, err
	}
	defer harness.Close()

	healing := "off"
	if harness.HealingEnabled() {
		healing = "on"
	}
	fmt.Println()
	bold.Println("🧪 Page Object Suite")
	fmt.Printf("   Browser: %s   Healing: %s   Scenarios: %d\n\n", harness.Browser(), healing, len(scenarios))

	bar := progressbar.NewOptions(len(scenarios),
		progressbar.OptionSetDescription("   Running..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	runner := suite.NewRunner(harness,
		suite.WithRunnerLogger(logger),
		suite.WithRunnerMetrics(metrics),
		suite.OnResult(func(r suite.Result) {
			bar.Describe("   " + r.Name)
			bar.Add(1)
		}),
	)

	results := runner.Run(ctx, scenarios)
	bar.Finish()
	fmt.Println()

	summary := suite.Summarize(results)
	return results, summary, nil
}

func runRemote(ctx context.Context, cfg *config.Config, filters []string, logger *zap.Logger, metrics *observability.Metrics) ([]suite.Result, suite.Summary, error) {
	c, err := temporal.NewClient(cfg.Temporal, logger, metrics)
	if err != nil {
		return nil, suite.Summary{}, err
	}
	defer c.Close()

	input := workflows.SuiteInput{
		RunID:       uuid.New().String(),
		TriggeredBy: os.Getenv("USER"),
		Filters:     filters,
	}
	cyan.Printf("🚀 Submitting run %s to %s\n", input.RunID, c.TaskQueue())

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   Waiting for worker..."),
		progressbar.OptionSpinnerType(14),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Add(1)
			}
		}
	}()

	out, err := c.RunSuite(ctx, input)
	close(done)
	bar.Finish()
	fmt.Println()
	if err != nil {
		return nil, suite.Summary{}, err
	}
	if out.Error != "" {
		yellow.Printf("⚠ %s\n", out.Error)
	}
	return out.Results, out.Summary, nil
}

func printCatalog() {
	for _, group := range suite.Groups() {
		bold.Println(group)
		for _, sc := range suite.Catalog() {
			if sc.Group == group {
				fmt.Printf("  %-32s ", sc.Name)
				dim.Println(sc.Description)
			}
		}
	}
}

func printResults(results []suite.Result, summary suite.Summary) {
	for _, r := range results {
		switch r.Status {
		case suite.StatusPassed:
			green.Printf("   ✓ %s", r.Name)
		case suite.StatusSkipped:
			yellow.Printf("   - %s", r.Name)
		default:
			red.Printf("   ✗ %s", r.Name)
		}
		dim.Printf(" (%s)\n", r.Duration.Round(time.Millisecond))

		if r.Error != "" {
			fmt.Printf("       %s\n", r.Error)
		}
		if r.Screenshot != "" {
			dim.Printf("       screenshot: %s\n", r.Screenshot)
		}
		if r.Healed > 0 {
			cyan.Printf("       healed %d locator(s)\n", r.Healed)
		}
	}

	fmt.Println()
	line := fmt.Sprintf("   %d passed, %d failed, %d skipped (%.1f%%)",
		summary.Passed, summary.Failed, summary.Skipped, summary.PassRate)
	if summary.OK() {
		green.Println(line)
	} else {
		red.Println(line)
	}
}

func writeJSON(path string, summary suite.Summary, results []suite.Result) error {
	data, err := json.MarshalIndent(struct {
		Summary suite.Summary  `json:"summary"`
		Results []suite.Result `json:"results"`
	}{summary, results}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func splitFilters(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func serveMetrics(addr string, metrics *observability.Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}

// initLogger keeps the terminal for the progress output unless verbose
func initLogger(env, level string, verbose bool) *zap.Logger {
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
	if !verbose {
		config.OutputPaths = []string{"suite.log"}
	}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

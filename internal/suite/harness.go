// Package suite runs the UI scenarios. A Harness owns the browser manager
// and the run configuration; each scenario gets a fresh session through
// Setup and releases it through Teardown.
package suite

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/browser"
	"github.com/testforge/pomsuite/internal/config"
	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/healing"
	"github.com/testforge/pomsuite/internal/observability"
	"github.com/testforge/pomsuite/internal/pages"
	"github.com/testforge/pomsuite/internal/wait"
)

// Env is what a scenario works with: the session, a wait helper and page
// objects built on that session
type Env struct {
	Driver browser.Driver
	Wait   *wait.Helper
	Logger *zap.Logger

	Browser     string
	URL         string
	ProductsURL string
	Username    string
	Password    string

	Login    *pages.LoginPage
	Home     *pages.HomePage
	Products *pages.ProductPage
}

// Harness prepares and releases sessions for scenarios
type Harness struct {
	cfg     *config.Config
	props   *config.Properties
	manager *browser.Manager
	logger  *zap.Logger
	metrics *observability.Metrics

	healingEnabled bool
	store          healing.Store
	closeStore     func() error
	uploader       browser.Uploader
}

// Option configures a Harness
type Option func(*Harness)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Harness) { h.metrics = m }
}

// WithUploader uploads failure screenshots in addition to writing them
func WithUploader(u browser.Uploader) Option {
	return func(h *Harness) { h.uploader = u }
}

// WithStore uses store for locator history instead of opening the
// configured backend
func WithStore(store healing.Store) Option {
	return func(h *Harness) { h.store = store }
}

// NewHarness builds the run's manager. The healing flag is resolved here,
// once; nothing re-reads it while the run is in progress.
func NewHarness(cfg *config.Config, launcher browser.Launcher, opts ...Option) (*Harness, error) {
	h := &Harness{
		cfg:        cfg,
		logger:     zap.NewNop(),
		closeStore: func() error { return nil },
	}
	for _, opt := range opts {
		opt(h)
	}

	h.props = config.LoadProperties(cfg.Suite.PropertiesPath, h.logger)
	h.healingEnabled = healing.ResolveEnabled(cfg.Healing, h.logger)

	if h.healingEnabled && h.store == nil {
		store, closeFn, err := healing.OpenStore(cfg, h.logger, h.metrics)
		if err != nil {
			return nil, fmt.Errorf("opening healing store: %w", err)
		}
		h.store = store
		h.closeStore = closeFn
	}

	managerOpts := []browser.ManagerOption{
		browser.WithLogger(h.logger),
		browser.WithMetrics(h.metrics),
		browser.WithScreenshotDir(cfg.Suite.ScreenshotDir),
		browser.WithChromeChannel(cfg.Browser.ChromeChannel),
		browser.WithDecorator(healing.DecoratorFor(h.healingEnabled, h.store, cfg.Healing, h.logger, h.metrics)),
	}
	if h.uploader != nil {
		managerOpts = append(managerOpts, browser.WithUploader(h.uploader))
	}
	h.manager = browser.NewManager(launcher, managerOpts...)

	h.logger.Info("Suite harness ready",
		zap.String("properties", h.props.Path()),
		zap.Bool("healing", h.healingEnabled),
		zap.String("healing_backend", cfg.Healing.Backend),
	)
	return h, nil
}

// Manager returns the browser manager the harness owns
func (h *Harness) Manager() *browser.Manager { return h.manager }

// Properties returns the loaded suite properties
func (h *Harness) Properties() *config.Properties { return h.props }

// HealingEnabled reports the flag resolved at construction
func (h *Harness) HealingEnabled() bool { return h.healingEnabled }

// Store returns the locator history store, nil when healing is off
func (h *Harness) Store() healing.Store { return h.store }

// Browser returns the browser the run asks for: SUITE_BROWSER, then the
// properties file
func (h *Harness) Browser() string {
	return firstNonEmpty(h.cfg.Suite.Browser, h.props.Browser())
}

// Setup opens a session and navigates it to the application URL
func (h *Harness) Setup(ctx context.Context) (*Env, error) {
	if err := os.MkdirAll(h.cfg.Suite.ScreenshotDir, 0755); err != nil {
		h.logger.Warn("Failed to create screenshot directory",
			zap.String("dir", h.cfg.Suite.ScreenshotDir),
			zap.Error(err))
	}

	env := &Env{
		Browser:     h.Browser(),
		URL:         firstNonEmpty(h.cfg.Suite.URL, h.props.URL()),
		ProductsURL: firstNonEmpty(h.cfg.Suite.ProductsURL, h.props.ProductsURL()),
		Username:    firstNonEmpty(h.cfg.Suite.Username, h.props.Username()),
		Password:    firstNonEmpty(h.cfg.Suite.Password, h.props.Password()),
		Logger:      h.logger,
	}

	driver, err := h.manager.Driver(ctx, env.Browser)
	if err != nil {
		return nil, err
	}
	env.Driver = driver

	env.Wait = wait.New(driver,
		wait.WithTimeout(h.cfg.Timeouts.Medium),
		wait.WithPollInterval(h.cfg.Timeouts.Poll),
		wait.WithLogger(h.logger),
		wait.WithMetrics(h.metrics),
	)
	env.Wait.SetImplicitWait(h.cfg.Timeouts.Implicit)

	if env.URL == "" {
		h.quit()
		return nil, domain.ErrConfig(fmt.Sprintf("no %q in %s and SUITE_URL is unset", config.KeyURL, h.props.Path()), nil)
	}
	if err := driver.Navigate(ctx, env.URL); err != nil {
		h.quit()
		return nil, fmt.Errorf("opening %s: %w", env.URL, err)
	}

	env.Login = pages.NewLoginPage(driver, env.Wait)
	env.Home = pages.NewHomePage(driver, env.Wait)
	env.Products = pages.NewProductPage(driver, env.Wait)

	kind, _ := h.manager.Kind()
	h.logger.Info("Test started", zap.String("browser", string(kind)), zap.String("url", env.URL))
	return env, nil
}

// Teardown records the outcome on result, captures a screenshot when the
// scenario failed, and quits the session. env may be nil when Setup failed.
func (h *Harness) Teardown(ctx context.Context, env *Env, result *Result) error {
	if env != nil {
		if hd, ok := env.Driver.(interface{ Heals() int }); ok {
			result.Healed = hd.Heals()
		}
	}

	switch result.Status {
	case StatusFailed:
		result.Screenshot = h.manager.TakeScreenshot(ctx, result.Name)
		h.logger.Warn("Test failed",
			zap.String("test", result.Name),
			zap.String("error", result.Error),
			zap.String("screenshot", result.Screenshot))
	case StatusPassed:
		h.logger.Info("Test passed", zap.String("test", result.Name), zap.Int("healed", result.Healed))
	case StatusSkipped:
		h.logger.Info("Test skipped", zap.String("test", result.Name), zap.String("reason", result.Error))
	}

	if err := h.manager.Quit(); err != nil {
		return err
	}
	h.logger.Debug("Browser closed", zap.String("test", result.Name))
	return nil
}

// Close releases the session and the history store
func (h *Harness) Close() error {
	h.quit()
	return h.closeStore()
}

func (h *Harness) quit() {
	if err := h.manager.Quit(); err != nil {
		h.logger.Warn("Failed to release browser session", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

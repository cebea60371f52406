package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/domain"
	"github.com/testforge/pomsuite/internal/observability"
)

// Launcher starts a new browser session
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, error)
}

// LauncherFunc adapts a function to Launcher
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Driver, error)

func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	return f(ctx, opts)
}

// Decorator wraps a freshly launched session, e.g. with self-healing
type Decorator func(Driver) Driver

// Uploader stores a copy of a screenshot remotely and returns its location
type Uploader interface {
	UploadScreenshot(ctx context.Context, key string, data []byte) (string, error)
}

// Manager owns at most one live browser session. It is created by the
// orchestration layer and passed to whoever needs the session.
type Manager struct {
	launcher      Launcher
	decorate      Decorator
	uploader      Uploader
	logger        *zap.Logger
	metrics       *observability.Metrics
	screenshotDir string
	chromeChannel string
	now           func() time.Time

	mu      sync.Mutex
	driver  Driver
	kind    Kind
	started time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithDecorator wraps every new session with d
func WithDecorator(d Decorator) ManagerOption {
	return func(m *Manager) { m.decorate = d }
}

// WithUploader uploads every screenshot after it is written
func WithUploader(u Uploader) ManagerOption {
	return func(m *Manager) { m.uploader = u }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(metrics *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithScreenshotDir sets where screenshots are written
func WithScreenshotDir(dir string) ManagerOption {
	return func(m *Manager) {
		if dir != "" {
			m.screenshotDir = dir
		}
	}
}

// WithChromeChannel selects a branded Chrome build for the chrome branch
func WithChromeChannel(channel string) ManagerOption {
	return func(m *Manager) { m.chromeChannel = channel }
}

// WithClock overrides the time source used for screenshot names
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// DefaultScreenshotDir is used when no directory is configured
const DefaultScreenshotDir = "screenshots"

// NewManager creates a manager with no live session
func NewManager(launcher Launcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		launcher:      launcher,
		logger:        zap.NewNop(),
		screenshotDir: DefaultScreenshotDir,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Driver returns the live session, launching one for browserName if there
// is none. Once a session exists it is returned unchanged whatever name is
// passed.
func (m *Manager) Driver(ctx context.Context, browserName string) (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver != nil {
		return m.driver, nil
	}

	kind, ok := ParseKind(browserName)
	if !ok {
		m.logger.Warn("Unsupported browser, falling back to default",
			zap.String("requested", browserName),
			zap.String("browser", string(kind)),
		)
	}
	opts := OptionsFor(kind, !ok, m.chromeChannel)

	driver, err := m.launcher.Launch(ctx, opts)
	if err != nil {
		m.metrics.RecordSessionStart(string(kind), "failure")
		m.logger.Error("Failed to launch browser", zap.String("browser", string(kind)), zap.Error(err))
		if domain.IsAppError(err) {
			return nil, err
		}
		return nil, domain.ErrDriverUnavailable(string(kind), err)
	}

	if err := driver.MaximizeWindow(); err != nil {
		m.logger.Warn("Failed to maximize window", zap.Error(err))
	}

	if m.decorate != nil {
		driver = m.decorate(driver)
	}

	m.driver = driver
	m.kind = kind
	m.started = m.now()
	m.metrics.RecordSessionStart(string(kind), "success")

	m.logger.Info("Browser session started", zap.String("browser", string(kind)))
	return driver, nil
}

// Current returns the live session without launching one
func (m *Manager) Current() (Driver, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver, m.driver != nil
}

// Kind returns the browser of the live session
func (m *Manager) Kind() (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind, m.driver != nil
}

// Quit closes the live session. It is a no-op when there is none.
func (m *Manager) Quit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver == nil {
		return nil
	}

	driver := m.driver
	m.driver = nil
	m.kind = ""
	m.metrics.RecordSessionEnd(m.now().Sub(m.started))

	if err := driver.Quit(); err != nil {
		m.logger.Warn("Browser session did not close cleanly", zap.Error(err))
		return fmt.Errorf("quitting browser: %w", err)
	}

	m.logger.Info("Browser session closed")
	return nil
}

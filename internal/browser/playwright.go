package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/domain"
)

// PlaywrightConfig contains browser launch settings
type PlaywrightConfig struct {
	Headless        bool
	SlowMo          time.Duration
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
	ImplicitWait    time.Duration

	// InstallBrowsers downloads the playwright driver and browsers before
	// the first launch
	InstallBrowsers bool
}

// DefaultPlaywrightConfig returns default launch settings
func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		Headless:        true,
		WindowWidth:     1920,
		WindowHeight:    1080,
		PageLoadTimeout: 30 * time.Second,
	}
}

// PlaywrightLauncher starts browser sessions with playwright-go
type PlaywrightLauncher struct {
	config      PlaywrightConfig
	logger      *zap.Logger
	installOnce sync.Once
	installErr  error
}

// NewPlaywrightLauncher creates a launcher
func NewPlaywrightLauncher(cfg PlaywrightConfig, logger *zap.Logger) *PlaywrightLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}
	return &PlaywrightLauncher{config: cfg, logger: logger}
}

// Launch starts playwright and the requested browser, and opens one page
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browserName := string(opts.Kind)

	if l.config.InstallBrowsers {
		l.installOnce.Do(func() {
			l.installErr = playwright.Install(&playwright.RunOptions{
				Browsers: []string{engineFor(opts.Kind)},
			})
		})
		if l.installErr != nil {
			return nil, domain.ErrDriverUnavailable(browserName, fmt.Errorf("installing browsers: %w", l.installErr))
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, domain.ErrDriverUnavailable(browserName, fmt.Errorf("starting playwright: %w", err))
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.config.Headless),
		Args:     opts.Args,
	}
	if opts.Channel != "" {
		launchOpts.Channel = playwright.String(opts.Channel)
	}
	if l.config.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(l.config.SlowMo.Milliseconds()))
	}

	browserType := pw.Chromium
	if opts.Kind == Firefox && !opts.Fallback {
		browserType = pw.Firefox
	}

	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, domain.ErrDriverUnavailable(browserName, fmt.Errorf("launching browser: %w", err))
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.config.WindowWidth,
			Height: l.config.WindowHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, domain.ErrDriverUnavailable(browserName, fmt.Errorf("creating browser context: %w", err))
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, domain.ErrDriverUnavailable(browserName, fmt.Errorf("creating page: %w", err))
	}

	if l.config.PageLoadTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(l.config.PageLoadTimeout.Milliseconds()))
	}

	l.logger.Info("Browser launched",
		zap.String("browser", browserName),
		zap.String("engine", engineFor(opts.Kind)),
		zap.String("channel", opts.Channel),
		zap.Strings("args", opts.Args),
		zap.Bool("headless", l.config.Headless),
	)

	return &PlaywrightDriver{
		pw:           pw,
		browser:      browser,
		browserCtx:   browserCtx,
		page:         page,
		kind:         opts.Kind,
		width:        l.config.WindowWidth,
		height:       l.config.WindowHeight,
		implicitWait: l.config.ImplicitWait,
	}, nil
}

func engineFor(kind Kind) string {
	if kind == Firefox {
		return "firefox"
	}
	return "chromium"
}

// PlaywrightDriver is a Driver backed by one playwright page
type PlaywrightDriver struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
	kind       Kind
	width      int
	height     int

	mu           sync.RWMutex
	implicitWait time.Duration
}

// Kind returns the browser the session was launched for
func (d *PlaywrightDriver) Kind() Kind {
	return d.kind
}

// Page exposes the underlying playwright page
func (d *PlaywrightDriver) Page() playwright.Page {
	return d.page
}

func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (d *PlaywrightDriver) FindElement(ctx context.Context, loc Locator) (Element, error) {
	pl, err := d.waitAttached(ctx, loc)
	if err != nil {
		return nil, err
	}
	return &playwrightElement{locator: pl.First(), loc: loc}, nil
}

func (d *PlaywrightDriver) FindElements(ctx context.Context, loc Locator) ([]Element, error) {
	pl, err := d.waitAttached(ctx, loc)
	if err != nil {
		if IsNotFound(err) {
			return []Element{}, nil
		}
		return nil, err
	}

	all, err := pl.All()
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", loc, err)
	}

	elements := make([]Element, 0, len(all))
	for _, item := range all {
		elements = append(elements, &playwrightElement{locator: item, loc: loc})
	}
	return elements, nil
}

// waitAttached polls for at least one match for up to the implicit wait
func (d *PlaywrightDriver) waitAttached(ctx context.Context, loc Locator) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pl := d.page.Locator(loc.Selector())
	implicit := d.ImplicitWait()

	// A zero timeout means "forever" to playwright, so a zero implicit wait
	// is a single count instead.
	if implicit <= 0 {
		n, err := pl.Count()
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", loc, err)
		}
		if n == 0 {
			return nil, domain.ErrElementNotFound(loc.String())
		}
		return pl, nil
	}

	err := pl.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(implicit.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, domain.ErrElementNotFound(loc.String()).WithCause(err)
		}
		return nil, fmt.Errorf("waiting for %s: %w", loc, err)
	}
	return pl, nil
}

func (d *PlaywrightDriver) Title() (string, error) {
	return d.page.Title()
}

func (d *PlaywrightDriver) CurrentURL() string {
	return d.page.URL()
}

func (d *PlaywrightDriver) MaximizeWindow() error {
	return d.page.SetViewportSize(d.width, d.height)
}

func (d *PlaywrightDriver) SetImplicitWait(timeout time.Duration) {
	d.mu.Lock()
	d.implicitWait = timeout
	d.mu.Unlock()

	// Actions on a found element share the same budget
	if timeout > 0 {
		d.page.SetDefaultTimeout(float64(timeout.Milliseconds()))
	}
}

func (d *PlaywrightDriver) ImplicitWait() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.implicitWait
}

func (d *PlaywrightDriver) Screenshot() ([]byte, error) {
	return d.page.Screenshot(playwright.PageScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
}

// Quit closes the context, the browser and the playwright driver
func (d *PlaywrightDriver) Quit() error {
	var errs []error
	if d.browserCtx != nil {
		if err := d.browserCtx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing context: %w", err))
		}
	}
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

// playwrightElement adapts a playwright.Locator resolved to one element
type playwrightElement struct {
	locator playwright.Locator
	loc     Locator
}

func (e *playwrightElement) Locator() Locator { return e.loc }

func (e *playwrightElement) Click() error {
	return e.locator.Click()
}

func (e *playwrightElement) SendKeys(text string) error {
	return e.locator.PressSequentially(text)
}

func (e *playwrightElement) Clear() error {
	return e.locator.Clear()
}

func (e *playwrightElement) Text() (string, error) {
	return e.locator.InnerText()
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	return e.locator.GetAttribute(name)
}

func (e *playwrightElement) TagName() (string, error) {
	v, err := e.locator.Evaluate("el => el.tagName", nil)
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return strings.ToLower(tag), nil
}

func (e *playwrightElement) IsDisplayed() (bool, error) {
	return e.locator.IsVisible()
}

func (e *playwrightElement) IsEnabled() (bool, error) {
	return e.locator.IsEnabled()
}
